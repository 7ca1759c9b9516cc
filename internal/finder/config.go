package finder

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/detector"
)

// Config holds finder defaults and tuning.
// Thresholds are pointers so an explicit 0 survives defaulting and merging.
type Config struct {
	Mode                string   `toml:"mode"`
	ConfidenceThreshold *float64 `toml:"confidence_threshold"`
	AllowWeakerMatches  bool     `toml:"allow_weaker_matches"`
	DetectionThreshold  *float64 `toml:"detection_threshold"`
	DetectionDebug      bool     `toml:"detection_debug"`
	DetectionModel      string   `toml:"detection_model"`
	DetectionConfig     string   `toml:"detection_config"`
	EnumerateAttempts   int      `toml:"enumerate_attempts"`
	EnumerateDelay      string   `toml:"enumerate_delay"`
	RestoreTimeout      string   `toml:"restore_timeout"`
	DebugImages         bool     `toml:"debug_images"`
	TempDir             string   `toml:"temp_dir"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode                string
	ConfidenceThreshold string
	AllowWeakerMatches  string
	DetectionThreshold  string
	DetectionDebug      string
	DetectionModel      string
	DetectionConfig     string
	EnumerateAttempts   string
	EnumerateDelay      string
	RestoreTimeout      string
	DebugImages         string
	TempDir             string
}

// Options returns the per-find defaults described by the config.
func (c *Config) Options() Options {
	return Options{
		Mode:               Mode(c.Mode),
		Threshold:          *c.ConfidenceThreshold,
		AllowWeakerMatches: c.AllowWeakerMatches,
		DetectionThreshold: c.DetectionThreshold,
		DetectionDebug:     c.DetectionDebug,
	}
}

// EnumerateDelayDuration returns EnumerateDelay as a time.Duration.
func (c *Config) EnumerateDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.EnumerateDelay)
	return d
}

// RestoreTimeoutDuration returns RestoreTimeout as a time.Duration.
func (c *Config) RestoreTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RestoreTimeout)
	return d
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
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.ConfidenceThreshold != nil {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.AllowWeakerMatches {
		c.AllowWeakerMatches = true
	}
	if overlay.DetectionThreshold != nil {
		c.DetectionThreshold = overlay.DetectionThreshold
	}
	if overlay.DetectionDebug {
		c.DetectionDebug = true
	}
	if overlay.DetectionModel != "" {
		c.DetectionModel = overlay.DetectionModel
	}
	if overlay.DetectionConfig != "" {
		c.DetectionConfig = overlay.DetectionConfig
	}
	if overlay.EnumerateAttempts != 0 {
		c.EnumerateAttempts = overlay.EnumerateAttempts
	}
	if overlay.EnumerateDelay != "" {
		c.EnumerateDelay = overlay.EnumerateDelay
	}
	if overlay.RestoreTimeout != "" {
		c.RestoreTimeout = overlay.RestoreTimeout
	}
	if overlay.DebugImages {
		c.DebugImages = true
	}
	if overlay.TempDir != "" {
		c.TempDir = overlay.TempDir
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = string(ModeElementLookup)
	}
	if c.ConfidenceThreshold == nil {
		t := confidence.DefaultThreshold
		c.ConfidenceThreshold = &t
	}
	if c.DetectionThreshold == nil {
		t := detector.DefaultThreshold
		c.DetectionThreshold = &t
	}
	if c.EnumerateAttempts == 0 {
		c.EnumerateAttempts = DefaultEnumerateAttempts
	}
	if c.EnumerateDelay == "" {
		c.EnumerateDelay = "100ms"
	}
	if c.RestoreTimeout == "" {
		c.RestoreTimeout = "10s"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
}

func (c *Config) loadEnv(env *Env) {
	str := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	float := func(name string, dst **float64) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = &f
			}
		}
	}

	str(env.Mode, &c.Mode)
	float(env.ConfidenceThreshold, &c.ConfidenceThreshold)
	boolean(env.AllowWeakerMatches, &c.AllowWeakerMatches)
	float(env.DetectionThreshold, &c.DetectionThreshold)
	boolean(env.DetectionDebug, &c.DetectionDebug)
	str(env.DetectionModel, &c.DetectionModel)
	str(env.DetectionConfig, &c.DetectionConfig)
	str(env.EnumerateDelay, &c.EnumerateDelay)
	str(env.RestoreTimeout, &c.RestoreTimeout)
	boolean(env.DebugImages, &c.DebugImages)
	str(env.TempDir, &c.TempDir)

	if env.EnumerateAttempts != "" {
		if v := os.Getenv(env.EnumerateAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.EnumerateAttempts = n
			}
		}
	}
}

func (c *Config) validate() error {
	if _, err := ParseMode(c.Mode); err != nil {
		return err
	}
	if err := confidence.ValidateThreshold(*c.ConfidenceThreshold); err != nil {
		return fmt.Errorf("confidence_threshold: %w", err)
	}
	if err := confidence.ValidateThreshold(*c.DetectionThreshold); err != nil {
		return fmt.Errorf("detection_threshold: %w", err)
	}
	if c.EnumerateAttempts < 1 {
		return fmt.Errorf("enumerate_attempts must be positive")
	}
	if _, err := time.ParseDuration(c.EnumerateDelay); err != nil {
		return fmt.Errorf("invalid enumerate_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.RestoreTimeout); err != nil {
		return fmt.Errorf("invalid restore_timeout: %w", err)
	}
	return nil
}
