package model

import (
	"fmt"
	"os"
	"strconv"
)

const (
	ColorGrayscale = "grayscale"
	ColorRGB       = "rgb"
)

// Config holds model loading and tensor preparation settings.
type Config struct {
	CatalogPath string  `toml:"catalog_path"`
	LibraryPath string  `toml:"library_path"`
	Path        string  `toml:"path"`
	InputName   string  `toml:"input_name"`
	OutputName  string  `toml:"output_name"`
	Width       int     `toml:"width"`
	Height      int     `toml:"height"`
	Mean        float64 `toml:"mean"`
	Std         float64 `toml:"std"`
	ColorMode   string  `toml:"color_mode"`
	Workers     int     `toml:"workers"`
	Preload     bool    `toml:"preload"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	CatalogPath string
	LibraryPath string
	Path        string
	InputName   string
	OutputName  string
	Workers     string
	Preload     string
}

// TensorSpec derives the input tensor description from the config.
func (c *Config) TensorSpec() TensorSpec {
	return TensorSpec{
		Width:     c.Width,
		Height:    c.Height,
		Channels:  3,
		Mean:      c.Mean,
		Std:       c.Std,
		Grayscale: c.ColorMode == ColorGrayscale,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.CatalogPath != "" {
		c.CatalogPath = overlay.CatalogPath
	}
	if overlay.LibraryPath != "" {
		c.LibraryPath = overlay.LibraryPath
	}
	if overlay.Path != "" {
		c.Path = overlay.Path
	}
	if overlay.InputName != "" {
		c.InputName = overlay.InputName
	}
	if overlay.OutputName != "" {
		c.OutputName = overlay.OutputName
	}
	if overlay.Width != 0 {
		c.Width = overlay.Width
	}
	if overlay.Height != 0 {
		c.Height = overlay.Height
	}
	if overlay.Mean != 0 {
		c.Mean = overlay.Mean
	}
	if overlay.Std != 0 {
		c.Std = overlay.Std
	}
	if overlay.ColorMode != "" {
		c.ColorMode = overlay.ColorMode
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.Preload {
		c.Preload = true
	}
}

func (c *Config) loadDefaults() {
	d := DefaultTensorSpec()
	if c.CatalogPath == "" {
		c.CatalogPath = "model/labels.txt"
	}
	if c.Path == "" {
		c.Path = "model/elements.onnx"
	}
	if c.InputName == "" {
		c.InputName = "Placeholder"
	}
	if c.OutputName == "" {
		c.OutputName = "final_result"
	}
	if c.Width == 0 {
		c.Width = d.Width
	}
	if c.Height == 0 {
		c.Height = d.Height
	}
	if c.Std == 0 {
		c.Std = d.Std
	}
	if c.ColorMode == "" {
		c.ColorMode = ColorGrayscale
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.CatalogPath != "" {
		if v := os.Getenv(env.CatalogPath); v != "" {
			c.CatalogPath = v
		}
	}
	if env.LibraryPath != "" {
		if v := os.Getenv(env.LibraryPath); v != "" {
			c.LibraryPath = v
		}
	}
	if env.Path != "" {
		if v := os.Getenv(env.Path); v != "" {
			c.Path = v
		}
	}
	if env.InputName != "" {
		if v := os.Getenv(env.InputName); v != "" {
			c.InputName = v
		}
	}
	if env.OutputName != "" {
		if v := os.Getenv(env.OutputName); v != "" {
			c.OutputName = v
		}
	}
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.Preload != "" {
		if v := os.Getenv(env.Preload); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Preload = b
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Width < 1 || c.Height < 1 {
		return fmt.Errorf("invalid input size: %dx%d", c.Width, c.Height)
	}
	if c.ColorMode != ColorGrayscale && c.ColorMode != ColorRGB {
		return fmt.Errorf("invalid color_mode: %q", c.ColorMode)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}
