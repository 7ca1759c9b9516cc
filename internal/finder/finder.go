// Package finder locates on-screen elements by semantic label through a
// UI-automation driver.
//
// Two modes are supported. Element lookup enumerates the driver's leaf
// elements, slices each one out of a screenshot by its rect, and classifies
// the slices. Object detection runs a detector over the screenshot, slices
// the detected boxes, classifies them, and registers the survivors with the
// driver as image elements. Both modes rank matches by confidence for the
// requested label.
package finder

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/detector"
	"github.com/JaimeStill/glimpse/pkg/driver"
	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/match"
	"github.com/JaimeStill/glimpse/pkg/slicer"
)

// Mode selects how candidate elements are produced.
type Mode string

const (
	ModeElementLookup   Mode = "element_lookup"
	ModeObjectDetection Mode = "object_detection"
)

// LeafXPath selects every element without element children.
const LeafXPath = "//*[not(child::*)]"

// DefaultEnumerateAttempts bounds enumeration retries on stale elements.
const DefaultEnumerateAttempts = 5

// ParseMode maps an empty string to element lookup and rejects unknown modes.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeElementLookup:
		return ModeElementLookup, nil
	case ModeObjectDetection:
		return ModeObjectDetection, nil
	}
	return "", fmt.Errorf("%w: %q (must be %s or %s)", ErrUnsupportedMode, s, ModeElementLookup, ModeObjectDetection)
}

// Options control a single find. A nil DetectionThreshold applies
// detector.DefaultThreshold.
type Options struct {
	Mode               Mode
	Threshold          float64
	AllowWeakerMatches bool
	DetectionThreshold *float64
	DetectionDebug     bool
}

func (o Options) detectionThreshold() float64 {
	if o.DetectionThreshold == nil {
		return detector.DefaultThreshold
	}
	return *o.DetectionThreshold
}

// Match is a found element with its classification.
type Match = match.Record[driver.Element]

// Finder runs finds against driver sessions. It holds no per-session state
// and is safe for concurrent use.
type Finder struct {
	engine   *confidence.Engine
	slicer   *slicer.Slicer
	detector detector.Detector
	logger   *slog.Logger

	attempts       int
	delay          time.Duration
	restoreTimeout time.Duration
	tempDir        string
}

// New creates a Finder. det may be nil, in which case object detection
// finds fail with ErrConfig.
func New(
	engine *confidence.Engine,
	sl *slicer.Slicer,
	det detector.Detector,
	cfg *Config,
	logger *slog.Logger,
) *Finder {
	return &Finder{
		engine:         engine,
		slicer:         sl,
		detector:       det,
		logger:         logger.With("system", "finder"),
		attempts:       max(cfg.EnumerateAttempts, 1),
		delay:          cfg.EnumerateDelayDuration(),
		restoreTimeout: cfg.RestoreTimeoutDuration(),
		tempDir:        cfg.TempDir,
	}
}

// Find returns the elements matching hint, best match first.
func (f *Finder) Find(ctx context.Context, drv driver.Driver, hint labels.Label, opts Options) ([]driver.Element, error) {
	matches, err := f.FindMatches(ctx, drv, hint, opts)
	if err != nil {
		return nil, err
	}
	return match.Handles(matches), nil
}

// FindMatches returns the matching elements with their classifications,
// best match first. An empty result is not an error.
func (f *Finder) FindMatches(ctx context.Context, drv driver.Driver, hint labels.Label, opts Options) ([]Match, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	if err := confidence.ValidateThreshold(opts.Threshold); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if err := confidence.ValidateThreshold(opts.detectionThreshold()); err != nil {
		return nil, fmt.Errorf("%w: detection: %w", ErrConfig, err)
	}

	f.logger.InfoContext(ctx, "finding elements",
		"label", hint,
		"mode", mode,
		"threshold", opts.Threshold,
		"allow_weaker_matches", opts.AllowWeakerMatches,
	)

	switch mode {
	case ModeObjectDetection:
		return f.findByDetection(ctx, drv, hint, opts)
	default:
		return f.findByLookup(ctx, drv, hint, opts)
	}
}

type screenshot struct {
	image *image.RGBA
	size  geometry.Size
	data  []byte
}

func (f *Finder) capture(ctx context.Context, drv driver.Driver) (*screenshot, error) {
	size, err := drv.WindowSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: window size: %w", ErrScreenshot, err)
	}

	data, err := drv.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScreenshot, err)
	}

	img, err := slicer.Prepare(data, size, f.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScreenshot, err)
	}

	return &screenshot{image: img, size: size, data: data}, nil
}

func (f *Finder) policy(opts Options) match.Policy {
	return match.Policy{
		Threshold:          opts.Threshold,
		AllowWeakerMatches: opts.AllowWeakerMatches,
	}
}
