package finder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JaimeStill/glimpse/pkg/driver"
	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/match"
	"github.com/JaimeStill/glimpse/pkg/slicer"
)

func (f *Finder) findByLookup(ctx context.Context, drv driver.Driver, hint labels.Label, opts Options) (matches []Match, err error) {
	restore, err := f.ensureRectSetting(ctx, drv)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := restore(); rerr != nil {
			err = errors.Join(err, rerr)
			matches = nil
		}
	}()

	elements, err := f.enumerate(ctx, drv)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shot, err := f.capture(ctx, drv)
	if err != nil {
		return nil, err
	}

	cache := slicer.NewCache(shot.image)
	batch := slicer.SliceAll(ctx, f.slicer, cache, elements, func(e driver.Element) *geometry.Rect {
		return e.Rect
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classes, err := f.engine.ClassifyAll(ctx, batch.Images(), opts.Threshold, hint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	records := make([]Match, len(classes))
	for i, c := range classes {
		records[i] = Match{Handle: batch.Sliced[i].Item, Classification: c}
	}

	return match.Select(records, hint, f.policy(opts), f.logger), nil
}

// ensureRectSetting makes the driver return rects with each element and
// returns a func that puts the original setting back. The restore runs on a
// context detached from the caller's so it completes after cancellation.
func (f *Finder) ensureRectSetting(ctx context.Context, drv driver.Driver) (func() error, error) {
	current, err := drv.Settings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}

	if current.HasAttribute(driver.RectAttribute) {
		return func() error { return nil }, nil
	}

	f.logger.InfoContext(ctx, "adding rect to element response attributes",
		"current", current.ElementResponseAttributes,
	)

	if err := drv.UpdateSettings(ctx, current.WithAttribute(driver.RectAttribute)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSettings, err)
	}

	return func() error {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.restoreTimeout)
		defer cancel()

		f.logger.InfoContext(rctx, "restoring element response attributes",
			"value", current.ElementResponseAttributes,
		)

		if err := drv.UpdateSettings(rctx, current); err != nil {
			return fmt.Errorf("%w: restore: %w", ErrSettings, err)
		}
		return nil
	}, nil
}

// enumerate lists leaf elements, retrying only when the driver reports a
// stale element.
func (f *Finder) enumerate(ctx context.Context, drv driver.Driver) ([]driver.Element, error) {
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		elements, err := drv.FindElements(ctx, driver.StrategyXPath, LeafXPath)
		if err == nil {
			f.logger.InfoContext(ctx, "elements enumerated", "count", len(elements), "attempt", attempt)
			return elements, nil
		}

		if !errors.Is(err, driver.ErrStaleElement) {
			return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
		}

		lastErr = err
		f.logger.WarnContext(ctx, "stale element during enumeration",
			"attempt", attempt,
			"max_attempts", f.attempts,
			"error", err,
		)

		if attempt == f.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	return nil, fmt.Errorf("%w: %d attempts: %w", ErrEnumerate, f.attempts, lastErr)
}
