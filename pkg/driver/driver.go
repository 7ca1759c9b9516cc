// Package driver defines the capabilities glimpse needs from a UI-automation
// driver session.
package driver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/JaimeStill/glimpse/pkg/geometry"
)

// StrategyXPath is the only locator strategy glimpse issues.
const StrategyXPath = "xpath"

// RectAttribute is the element attribute that carries bounding rects.
const RectAttribute = "rect"

var (
	// ErrStaleElement indicates the DOM changed while elements were being
	// enumerated. It is the only driver error glimpse retries.
	ErrStaleElement = errors.New("stale element reference")
	// ErrUnknownElement indicates an element id the driver does not recognize.
	ErrUnknownElement = errors.New("unknown element")
)

// Element is a driver-side element handle. Rect is nil when the driver did
// not report bounds for the element.
type Element struct {
	ID   string         `json:"id"`
	Rect *geometry.Rect `json:"rect,omitempty"`
}

// Settings are the session settings glimpse reads and toggles.
type Settings struct {
	// ElementResponseAttributes is a comma-separated attribute list returned
	// with each element.
	ElementResponseAttributes string `json:"elementResponseAttributes"`
}

// Attributes splits ElementResponseAttributes into trimmed, non-empty names.
func (s Settings) Attributes() []string {
	var out []string
	for a := range strings.SplitSeq(s.ElementResponseAttributes, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// HasAttribute reports whether name is among the response attributes.
func (s Settings) HasAttribute(name string) bool {
	return slices.Contains(s.Attributes(), name)
}

// WithAttribute returns settings with name appended to the attribute list.
func (s Settings) WithAttribute(name string) Settings {
	if s.HasAttribute(name) {
		return s
	}
	attrs := append(s.Attributes(), name)
	return Settings{ElementResponseAttributes: strings.Join(attrs, ",")}
}

// Driver is the automation session used by the finder.
type Driver interface {
	FindElements(ctx context.Context, strategy, selector string) ([]Element, error)
	Screenshot(ctx context.Context) ([]byte, error)
	WindowSize(ctx context.Context) (geometry.Size, error)
	Settings(ctx context.Context) (Settings, error)
	UpdateSettings(ctx context.Context, s Settings) error
	// RegisterImageElement hands an image template and its on-screen rect to
	// the driver and returns an element the caller can interact with.
	RegisterImageElement(ctx context.Context, template []byte, rect geometry.Rect) (Element, error)
}
