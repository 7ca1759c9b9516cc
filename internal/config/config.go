package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/glimpse/internal/finder"
	"github.com/JaimeStill/glimpse/pkg/database"
	"github.com/JaimeStill/glimpse/pkg/model"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvGlimpseEnv             = "GLIMPSE_ENV"
	EnvGlimpseShutdownTimeout = "GLIMPSE_SHUTDOWN_TIMEOUT"
	EnvGlimpseVersion         = "GLIMPSE_VERSION"
)

var databaseEnv = &database.Env{
	Disabled:        "GLIMPSE_DB_DISABLED",
	Host:            "GLIMPSE_DB_HOST",
	Port:            "GLIMPSE_DB_PORT",
	Name:            "GLIMPSE_DB_NAME",
	User:            "GLIMPSE_DB_USER",
	Password:        "GLIMPSE_DB_PASSWORD",
	SSLMode:         "GLIMPSE_DB_SSL_MODE",
	MaxOpenConns:    "GLIMPSE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "GLIMPSE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "GLIMPSE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "GLIMPSE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "GLIMPSE_STORAGE_PROVIDER",
	Path:             "GLIMPSE_STORAGE_PATH",
	ContainerName:    "GLIMPSE_STORAGE_CONTAINER_NAME",
	ConnectionString: "GLIMPSE_STORAGE_CONNECTION_STRING",
	AccountURL:       "GLIMPSE_STORAGE_ACCOUNT_URL",
}

var modelEnv = &model.Env{
	CatalogPath: "GLIMPSE_MODEL_CATALOG_PATH",
	LibraryPath: "GLIMPSE_MODEL_LIBRARY_PATH",
	Path:        "GLIMPSE_MODEL_PATH",
	InputName:   "GLIMPSE_MODEL_INPUT_NAME",
	OutputName:  "GLIMPSE_MODEL_OUTPUT_NAME",
	Workers:     "GLIMPSE_MODEL_WORKERS",
	Preload:     "GLIMPSE_MODEL_PRELOAD",
}

var finderEnv = &finder.Env{
	Mode:                "GLIMPSE_FINDER_MODE",
	ConfidenceThreshold: "GLIMPSE_FINDER_CONFIDENCE_THRESHOLD",
	AllowWeakerMatches:  "GLIMPSE_FINDER_ALLOW_WEAKER_MATCHES",
	DetectionThreshold:  "GLIMPSE_FINDER_DETECTION_THRESHOLD",
	DetectionDebug:      "GLIMPSE_FINDER_DETECTION_DEBUG",
	DetectionModel:      "GLIMPSE_FINDER_DETECTION_MODEL",
	DetectionConfig:     "GLIMPSE_FINDER_DETECTION_CONFIG",
	EnumerateAttempts:   "GLIMPSE_FINDER_ENUMERATE_ATTEMPTS",
	EnumerateDelay:      "GLIMPSE_FINDER_ENUMERATE_DELAY",
	RestoreTimeout:      "GLIMPSE_FINDER_RESTORE_TIMEOUT",
	DebugImages:         "GLIMPSE_FINDER_DEBUG_IMAGES",
	TempDir:             "GLIMPSE_FINDER_TEMP_DIR",
}

// Config is the root configuration for the Glimpse service and CLI.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	Model           model.Config    `toml:"model"`
	Finder          finder.Config   `toml:"finder"`
	API             APIConfig       `toml:"api"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the GLIMPSE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvGlimpseEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFile(BaseConfigFile)
}

// LoadFile is Load with an explicit base config path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Model.Merge(&overlay.Model)
	c.Finder.Merge(&overlay.Finder)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Model.Finalize(modelEnv); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Finder.Finalize(finderEnv); err != nil {
		return fmt.Errorf("finder: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvGlimpseShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvGlimpseVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvGlimpseEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
