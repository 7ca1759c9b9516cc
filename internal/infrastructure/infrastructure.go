// Package infrastructure provides core service initialization for application startup.
// It assembles the shared dependencies (logging, database, storage, the
// classification model, and the finder) that the server and CLI require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/finder"
	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/database"
	"github.com/JaimeStill/glimpse/pkg/detector"
	"github.com/JaimeStill/glimpse/pkg/detector/cvdetect"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/lifecycle"
	"github.com/JaimeStill/glimpse/pkg/model"
	"github.com/JaimeStill/glimpse/pkg/model/onnx"
	"github.com/JaimeStill/glimpse/pkg/slicer"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

// DebugImagePrefix is the storage key prefix for persisted element slices.
const DebugImagePrefix = "elements"

// Infrastructure holds the core systems required by the classifier and finder.
// Database is nil when history is disabled. Detector is nil when no
// detection model is configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Catalog   *labels.Catalog
	Model     *model.Provider
	Engine    *confidence.Engine
	Detector  detector.Detector
	Finder    *finder.Finder

	preload bool
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
// The model itself is not loaded here.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLoader(cfg, nil)
}

// NewWithLoader is New with an explicit model loader. A nil loader opens
// the ONNX model described by cfg.Model.
func NewWithLoader(cfg *config.Config, load model.Loader) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var db database.System
	if !cfg.Database.Disabled {
		var err error
		db, err = database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	catalog, err := labels.Load(cfg.Model.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("label catalog init failed: %w", err)
	}

	if load == nil {
		load = onnx.Loader(onnx.Options{
			LibraryPath: cfg.Model.LibraryPath,
			ModelPath:   cfg.Model.Path,
			InputName:   cfg.Model.InputName,
			OutputName:  cfg.Model.OutputName,
		}, logger)
	}
	provider := model.NewProvider(load, logger)
	engine := confidence.NewEngine(catalog, provider, cfg.Model.TensorSpec(), cfg.Model.Workers, logger)

	var sink slicer.Sink
	if cfg.Finder.DebugImages {
		sink = slicer.NewStorageSink(store, DebugImagePrefix)
	}

	var det detector.Detector
	if cfg.Finder.DetectionModel != "" {
		det = cvdetect.New(cvdetect.Options{
			ModelPath:  cfg.Finder.DetectionModel,
			ConfigPath: cfg.Finder.DetectionConfig,
		}, logger)
	}

	f := finder.New(engine, slicer.New(sink, logger), det, &cfg.Finder, logger)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Catalog:   catalog,
		Model:     provider,
		Engine:    engine,
		Detector:  det,
		Finder:    f,
		preload:   cfg.Model.Preload,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Model.Start(i.Lifecycle, i.preload); err != nil {
		return fmt.Errorf("model start failed: %w", err)
	}
	if c, ok := i.Detector.(interface{ Close() error }); ok {
		i.Lifecycle.OnShutdown(func() {
			<-i.Lifecycle.Context().Done()
			if err := c.Close(); err != nil {
				i.Logger.Error("detector close failed", "error", err)
			}
		})
	}
	return nil
}

// Ready reports whether every started system can serve traffic.
// The model counts only when it was preloaded.
func (i *Infrastructure) Ready() bool {
	checkers := []lifecycle.ReadinessChecker{i.Lifecycle}
	if i.Database != nil {
		checkers = append(checkers, i.Database)
	}
	if i.preload {
		checkers = append(checkers, i.Model)
	}
	return lifecycle.AllReady(checkers...)
}
