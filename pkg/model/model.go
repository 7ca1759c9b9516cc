// Package model provides the vision-model contract used for scoring element
// images, a lazily loaded shared handle to it, and tensor preparation.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JaimeStill/glimpse/pkg/lifecycle"
)

var (
	// ErrNotLoaded indicates the model has not been loaded yet.
	ErrNotLoaded = errors.New("model not loaded")
	// ErrClosed indicates the provider was closed and can no longer load.
	ErrClosed = errors.New("model provider closed")
)

// Runtime runs inference for a single prepared tensor and returns one score
// per catalog label. Implementations must be safe for concurrent use.
type Runtime interface {
	Infer(ctx context.Context, input Tensor) ([]float32, error)
	Close() error
}

// Loader constructs a Runtime. It is invoked at most once per successful load.
type Loader func(ctx context.Context) (Runtime, error)

// Provider shares one lazily loaded Runtime across all operations.
// A failed load is not cached, so the next caller retries it.
type Provider struct {
	load   Loader
	logger *slog.Logger

	mu     sync.Mutex
	rt     Runtime
	closed bool
}

// NewProvider creates a Provider that loads its Runtime on first use.
func NewProvider(load Loader, logger *slog.Logger) *Provider {
	return &Provider{
		load:   load,
		logger: logger.With("system", "model"),
	}
}

// Model returns the loaded Runtime, loading it if necessary.
func (p *Provider) Model(ctx context.Context) (Runtime, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.rt != nil {
		return p.rt, nil
	}

	p.logger.InfoContext(ctx, "loading model")
	rt, err := p.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if rt == nil {
		return nil, ErrNotLoaded
	}

	p.rt = rt
	p.logger.InfoContext(ctx, "model loaded")
	return rt, nil
}

// Ready reports whether the Runtime has been loaded.
func (p *Provider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rt != nil
}

// Close releases the Runtime if one was loaded. Subsequent calls to Model fail.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.rt == nil {
		return nil
	}

	err := p.rt.Close()
	p.rt = nil
	return err
}

// Start registers lifecycle hooks. When preload is set the model is loaded
// during startup; the Runtime is always released on shutdown.
func (p *Provider) Start(lc *lifecycle.Coordinator, preload bool) error {
	if preload {
		lc.OnStartup(func() {
			if _, err := p.Model(lc.Context()); err != nil {
				p.logger.Error("model preload failed", "error", err)
			}
		})
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := p.Close(); err != nil {
			p.logger.Error("model close failed", "error", err)
			return
		}
		p.logger.Info("model released")
	})

	return nil
}
