// Package api assembles the API module with the classifier system and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/glimpse/internal/config"
	"github.com/JaimeStill/glimpse/internal/infrastructure"
	"github.com/JaimeStill/glimpse/pkg/middleware"
	"github.com/JaimeStill/glimpse/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// When auth is enabled the OIDC issuer is contacted to build the verifier.
func NewModule(ctx context.Context, cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	var verifier middleware.TokenVerifier
	if cfg.API.Auth.Enabled {
		v, err := middleware.NewVerifier(ctx, &cfg.API.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth: %w", err)
		}
		verifier = v
	}

	return newModule(cfg, infra, verifier)
}

func newModule(
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
	verifier middleware.TokenVerifier,
) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, err
	}

	chain := middleware.Chain{
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
	}
	if verifier != nil {
		chain = append(chain, middleware.Auth(verifier, cfg.API.Auth.Public, runtime.Logger))
	}

	return module.New(cfg.API.BasePath, mux, chain)
}
