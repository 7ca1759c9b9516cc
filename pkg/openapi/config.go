package openapi

import (
	"fmt"
	"os"
	"strings"
)

// Config describes the served document.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	// Path is the route the document is served on, relative to the API base path.
	Path string `toml:"path"`
}

// ConfigEnv names the environment variables that override Config fields.
type ConfigEnv struct {
	Title       string
	Description string
	Path        string
}

// Finalize applies defaults, then env overrides, then validates Path.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Glimpse API"
	}
	if c.Description == "" {
		c.Description = "Label-based element classification for UI automation."
	}
	if c.Path == "" {
		c.Path = "/openapi.json"
	}

	if env != nil {
		for name, dst := range map[string]*string{
			env.Title:       &c.Title,
			env.Description: &c.Description,
			env.Path:        &c.Path,
		} {
			if name == "" {
				continue
			}
			if v := os.Getenv(name); v != "" {
				*dst = v
			}
		}
	}

	if !strings.HasPrefix(c.Path, "/") || strings.ContainsAny(c.Path, " {}") {
		return fmt.Errorf("invalid path %q", c.Path)
	}
	return nil
}

// Merge overwrites fields that are set in overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
}
