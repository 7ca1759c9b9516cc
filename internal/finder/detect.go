package finder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/detector"
	"github.com/JaimeStill/glimpse/pkg/driver"
	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/match"
	"github.com/JaimeStill/glimpse/pkg/slicer"
)

// candidate is a detection projected into window coordinates. id is the
// candidate's position in the detector output.
type candidate struct {
	id   int
	rect geometry.Rect
	detector.Candidate
}

func (f *Finder) findByDetection(ctx context.Context, drv driver.Driver, hint labels.Label, opts Options) ([]Match, error) {
	if f.detector == nil {
		return nil, fmt.Errorf("%w: object detection is not configured", ErrConfig)
	}

	shot, err := f.capture(ctx, drv)
	if err != nil {
		return nil, err
	}

	detected, err := f.detect(ctx, shot, opts)
	if err != nil {
		return nil, err
	}

	candidates := project(detected, shot.size)

	cache := slicer.NewCache(shot.image)
	batch := slicer.SliceAll(ctx, f.slicer, cache, candidates, func(c candidate) *geometry.Rect {
		return &c.rect
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classes, err := f.engine.ClassifyAll(ctx, batch.Images(), opts.Threshold, hint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	records := make([]match.Record[slicer.Sliced[candidate]], len(classes))
	for i, c := range classes {
		records[i] = match.Record[slicer.Sliced[candidate]]{Handle: batch.Sliced[i], Classification: c}
	}

	selected := match.Select(records, hint, f.policy(opts), f.logger)

	return f.register(ctx, drv, selected)
}

func (f *Finder) detect(ctx context.Context, shot *screenshot, opts Options) ([]detector.Candidate, error) {
	path := filepath.Join(f.tempDir, uuid.NewString()+"_screenshot.png")
	if err := os.WriteFile(path, shot.data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: stage screenshot: %w", ErrDetect, err)
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.logger.WarnContext(ctx, "staged screenshot not removed", "path", path, "error", err)
		}
	}()

	f.logger.InfoContext(ctx, "running object detection",
		"path", path,
		"threshold", opts.detectionThreshold(),
	)

	detected, err := f.detector.Detect(ctx, path, opts.detectionThreshold(), opts.DetectionDebug)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetect, err)
	}

	f.logger.InfoContext(ctx, "object candidates detected", "count", len(detected))
	return detected, nil
}

func project(detected []detector.Candidate, size geometry.Size) []candidate {
	out := make([]candidate, len(detected))
	for i, d := range detected {
		out[i] = candidate{
			id:        i,
			rect:      d.Project(size),
			Candidate: d,
		}
	}
	return out
}

// register hands each selected slice to the driver as a PNG template. Any
// failure aborts the find.
func (f *Finder) register(
	ctx context.Context,
	drv driver.Driver,
	selected []match.Record[slicer.Sliced[candidate]],
) ([]Match, error) {
	out := make([]Match, 0, len(selected))

	for _, s := range selected {
		template, err := slicer.EncodePNG(s.Handle.Image.Image)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %w", ErrRegister, s.Handle.Item.id, err)
		}

		el, err := drv.RegisterImageElement(ctx, template, s.Handle.Image.Rect)
		if err != nil {
			return nil, fmt.Errorf("%w: candidate %d: %w", ErrRegister, s.Handle.Item.id, err)
		}

		out = append(out, Match{Handle: el, Classification: s.Classification})
	}

	f.logger.InfoContext(ctx, "image elements registered", "count", len(out))
	return out, nil
}
