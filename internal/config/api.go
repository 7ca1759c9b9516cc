package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/JaimeStill/glimpse/pkg/formatting"
	"github.com/JaimeStill/glimpse/pkg/middleware"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/pagination"
	"github.com/JaimeStill/glimpse/pkg/slicer"
)

const defaultMaxUploadSize = 32 * 1024 * 1024

var corsEnv = &middleware.CORSEnv{
	Enabled:          "GLIMPSE_CORS_ENABLED",
	Origins:          "GLIMPSE_CORS_ORIGINS",
	AllowedMethods:   "GLIMPSE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "GLIMPSE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "GLIMPSE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "GLIMPSE_CORS_MAX_AGE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:   "GLIMPSE_AUTH_ENABLED",
	IssuerURL: "GLIMPSE_AUTH_ISSUER_URL",
	ClientID:  "GLIMPSE_AUTH_CLIENT_ID",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "GLIMPSE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "GLIMPSE_PAGINATION_MAX_PAGE_SIZE",
}

var openapiEnv = &openapi.ConfigEnv{
	Title:       "GLIMPSE_OPENAPI_TITLE",
	Description: "GLIMPSE_OPENAPI_DESCRIPTION",
	Path:        "GLIMPSE_OPENAPI_PATH",
}

// APIConfig holds API routing, CORS, auth, pagination, and OpenAPI settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	// MaxImagePixels bounds the decoded size of each submitted element image.
	MaxImagePixels int                  `toml:"max_image_pixels"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Auth          middleware.AuthConfig `toml:"auth"`
	Pagination    pagination.Config     `toml:"pagination"`
	OpenAPI       openapi.Config        `toml:"openapi"`
}

// MaxUploadSizeBytes parses MaxUploadSize, falling back to 32MB when unparseable.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil || size <= 0 {
		return defaultMaxUploadSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxUploadSize); err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if c.MaxImagePixels < 1 {
		return fmt.Errorf("invalid max_image_pixels: %d", c.MaxImagePixels)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.OpenAPI.Finalize(openapiEnv); err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}
	if overlay.MaxImagePixels != 0 {
		c.MaxImagePixels = overlay.MaxImagePixels
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.Pagination.Merge(&overlay.Pagination)
	c.OpenAPI.Merge(&overlay.OpenAPI)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "32MB"
	}
	if c.MaxImagePixels == 0 {
		c.MaxImagePixels = slicer.DefaultMaxPixels
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("GLIMPSE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("GLIMPSE_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
	if v := os.Getenv("GLIMPSE_API_MAX_IMAGE_PIXELS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxImagePixels = n
		}
	}
}
