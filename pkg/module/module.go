// Package module mounts self-contained HTTP modules under single-level path
// prefixes. Each module sees request paths with its prefix removed.
package module

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/glimpse/pkg/middleware"
)

// Module serves an inner router behind a middleware chain under a prefix.
type Module struct {
	prefix  string
	handler http.Handler
}

// New wraps router with chain under prefix, which must be a single-level
// path such as "/api".
func New(prefix string, router http.Handler, chain middleware.Chain) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{
		prefix:  prefix,
		handler: chain.Then(router),
	}, nil
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve dispatches a clone of req with the prefix stripped from its path.
// req itself is left untouched.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	inner := req.Clone(req.Context())
	inner.URL.Path = strings.TrimPrefix(req.URL.Path, m.prefix)
	if inner.URL.Path == "" {
		inner.URL.Path = "/"
	}
	inner.URL.RawPath = ""

	m.handler.ServeHTTP(w, inner)
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("module prefix cannot be empty")
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("module prefix must start with /: %s", prefix)
	case strings.Count(prefix, "/") != 1 || len(prefix) == 1:
		return fmt.Errorf("module prefix must be a single path segment: %s", prefix)
	}
	return nil
}
