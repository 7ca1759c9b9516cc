package confidence

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/model"
)

// Engine scores element images with the shared model and applies Decide.
type Engine struct {
	catalog  *labels.Catalog
	provider *model.Provider
	spec     model.TensorSpec
	workers  int
	logger   *slog.Logger
}

// NewEngine creates an Engine. A workers value below 1 uses the CPU count.
func NewEngine(
	catalog *labels.Catalog,
	provider *model.Provider,
	spec model.TensorSpec,
	workers int,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		catalog:  catalog,
		provider: provider,
		spec:     spec,
		workers:  workers,
		logger:   logger.With("system", "confidence"),
	}
}

// Catalog returns the label catalog the engine scores over.
func (e *Engine) Catalog() *labels.Catalog {
	return e.catalog
}

// ScoreToMap validates a raw score vector and maps it onto the catalog.
func (e *Engine) ScoreToMap(scores []float32) (Map, error) {
	return ToMap(e.catalog, scores)
}

// Score runs inference for one image and returns its confidence map.
func (e *Engine) Score(ctx context.Context, img image.Image) (Map, error) {
	rt, err := e.provider.Model(ctx)
	if err != nil {
		return nil, err
	}
	return e.score(ctx, rt, img)
}

// Classify scores one image and decides its label.
func (e *Engine) Classify(ctx context.Context, img image.Image, threshold float64, hint labels.Label) (Classification, error) {
	m, err := e.Score(ctx, img)
	if err != nil {
		return Classification{}, err
	}
	return Decide(m, threshold, hint), nil
}

// ScoreAll scores images in parallel. Results are returned in input order.
// Any failure cancels the remaining work and is returned.
func (e *Engine) ScoreAll(ctx context.Context, images []image.Image) ([]Map, error) {
	if len(images) == 0 {
		return []Map{}, nil
	}

	rt, err := e.provider.Model(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]Map, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount(len(images)))

	for i, img := range images {
		g.Go(func() error {
			m, err := e.score(gctx, rt, img)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			results[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// ClassifyAll scores images in parallel and decides each against threshold
// and hint. Results are returned in input order.
func (e *Engine) ClassifyAll(
	ctx context.Context,
	images []image.Image,
	threshold float64,
	hint labels.Label,
) ([]Classification, error) {
	maps, err := e.ScoreAll(ctx, images)
	if err != nil {
		return nil, err
	}

	out := make([]Classification, len(maps))
	for i, m := range maps {
		out[i] = Decide(m, threshold, hint)
	}

	e.logger.DebugContext(ctx, "images classified", "count", len(out), "hint", hint)
	return out, nil
}

func (e *Engine) score(ctx context.Context, rt model.Runtime, img image.Image) (Map, error) {
	tensor := e.spec.FromImage(img)

	scores, err := rt.Infer(ctx, tensor)
	if err != nil {
		return nil, fmt.Errorf("infer: %w", err)
	}

	return e.ScoreToMap(scores)
}

func (e *Engine) workerCount(n int) int {
	limit := e.workers
	if limit < 1 {
		limit = runtime.NumCPU()
	}
	return max(min(limit, n), 1)
}
