package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/glimpse/internal/classifier"
	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	debug := newStorageHandler(runtime.Storage, runtime.Logger)

	patterns := routes.Register(
		mux,
		domain.Classifier.Handler(runtime.MaxUploadSize).Routes(),
		debug.routes(),
	)
	runtime.Logger.Debug("routes registered", "count", len(patterns))

	doc, err := buildDocument(cfg, debug)
	if err != nil {
		return fmt.Errorf("openapi: %w", err)
	}
	serve, err := doc.Handler()
	if err != nil {
		return err
	}
	mux.HandleFunc("GET "+cfg.API.OpenAPI.Path, serve)

	return nil
}

func buildDocument(cfg *config.Config, debug *storageHandler) (*openapi.Document, error) {
	doc := openapi.New(cfg.API.OpenAPI, cfg.Version, cfg.API.BasePath)

	if err := doc.Mount(classifier.Paths(), classifier.Schemas()); err != nil {
		return nil, err
	}
	if err := doc.Mount(debug.paths(), nil); err != nil {
		return nil, err
	}
	return doc, nil
}
