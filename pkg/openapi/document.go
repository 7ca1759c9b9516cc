// Package openapi assembles the service's OpenAPI 3.1 document from the
// paths each handler describes and serves it as pre-rendered JSON.
package openapi

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

// Document is an OpenAPI 3.1 document.
type Document struct {
	OpenAPI    string               `json:"openapi"`
	Info       Info                 `json:"info"`
	Servers    []Server             `json:"servers,omitempty"`
	Paths      map[string]*PathItem `json:"paths"`
	Components *Components          `json:"components"`
}

// New creates a document titled from cfg. A non-empty basePath becomes the
// single server entry that every mounted path is relative to.
func New(cfg Config, version, basePath string) *Document {
	d := &Document{
		OpenAPI: "3.1.0",
		Info: Info{
			Title:       cfg.Title,
			Version:     version,
			Description: cfg.Description,
		},
		Paths:      make(map[string]*PathItem),
		Components: newComponents(),
	}
	if basePath != "" {
		d.Servers = []Server{{URL: basePath}}
	}
	return d
}

// Mount adds paths and the schemas they reference. A path already present
// in the document is an error.
func (d *Document) Mount(paths map[string]*PathItem, schemas map[string]*Schema) error {
	for p := range paths {
		if _, exists := d.Paths[p]; exists {
			return fmt.Errorf("duplicate path %s", p)
		}
	}
	maps.Copy(d.Paths, paths)
	maps.Copy(d.Components.Schemas, schemas)
	return nil
}

// Handler renders the document once and returns a handler serving the bytes.
// Paths mounted afterwards are not served.
func (d *Document) Handler() (http.HandlerFunc, error) {
	body, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render openapi document: %w", err)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write(body)
	}, nil
}
