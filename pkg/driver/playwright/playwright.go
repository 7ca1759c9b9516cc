// Package playwright adapts a Playwright page to driver.Driver.
package playwright

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/JaimeStill/glimpse/pkg/driver"
	"github.com/JaimeStill/glimpse/pkg/geometry"
)

// Driver exposes a single Playwright page as a driver session.
// Settings are held in memory; elements are tracked by id so callers can
// click them through Click. Each FindElements call releases the DOM handles
// of the previous call, so only the latest enumeration is clickable.
type Driver struct {
	page   playwright.Page
	logger *slog.Logger

	mu       sync.Mutex
	settings driver.Settings
	elements map[string]playwright.Locator
	images   map[string]geometry.Rect
	seq      int
}

// New wraps page.
func New(page playwright.Page, logger *slog.Logger) *Driver {
	return &Driver{
		page:     page,
		logger:   logger.With("driver", "playwright"),
		elements: make(map[string]playwright.Locator),
		images:   make(map[string]geometry.Rect),
	}
}

func (d *Driver) FindElements(ctx context.Context, strategy, selector string) ([]driver.Element, error) {
	if strategy != driver.StrategyXPath {
		return nil, fmt.Errorf("unsupported locator strategy: %s", strategy)
	}

	locators, err := d.page.Locator("xpath=" + selector).All()
	if err != nil {
		return nil, mapError(err)
	}

	d.mu.Lock()
	withRect := d.settings.HasAttribute(driver.RectAttribute)
	d.elements = make(map[string]playwright.Locator, len(locators))
	d.mu.Unlock()

	elements := make([]driver.Element, 0, len(locators))
	for _, loc := range locators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		el := driver.Element{ID: d.track(loc)}

		if withRect {
			box, err := loc.BoundingBox()
			if err != nil {
				return nil, mapError(err)
			}
			if box != nil {
				r := geometry.NewRect(box.X, box.Y, box.Width, box.Height)
				el.Rect = &r
			}
		}

		elements = append(elements, el)
	}

	d.logger.DebugContext(ctx, "elements found", "selector", selector, "count", len(elements))
	return elements, nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := d.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return data, nil
}

func (d *Driver) WindowSize(ctx context.Context) (geometry.Size, error) {
	size := d.page.ViewportSize()
	if size == nil {
		return geometry.Size{}, errors.New("viewport size unavailable")
	}
	return geometry.Size{Width: size.Width, Height: size.Height}, nil
}

func (d *Driver) Settings(ctx context.Context) (driver.Settings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings, nil
}

func (d *Driver) UpdateSettings(ctx context.Context, s driver.Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = s
	return nil
}

// RegisterImageElement records rect under a new image element id. The
// template is not needed by Playwright, which clicks by coordinates.
func (d *Driver) RegisterImageElement(ctx context.Context, template []byte, rect geometry.Rect) (driver.Element, error) {
	if len(template) == 0 {
		return driver.Element{}, errors.New("empty image template")
	}

	id := "image-" + uuid.NewString()

	d.mu.Lock()
	d.images[id] = rect
	d.mu.Unlock()

	return driver.Element{ID: id, Rect: &rect}, nil
}

// Click clicks the element with the given id.
func (d *Driver) Click(ctx context.Context, id string) error {
	d.mu.Lock()
	loc, isDOM := d.elements[id]
	rect, isImage := d.images[id]
	d.mu.Unlock()

	switch {
	case isDOM:
		return mapError(loc.Click())
	case isImage:
		c := rect.Center()
		return d.page.Mouse().Click(c.X, c.Y)
	default:
		return fmt.Errorf("%w: %s", driver.ErrUnknownElement, id)
	}
}

func (d *Driver) track(loc playwright.Locator) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	id := fmt.Sprintf("element-%d", d.seq)
	d.elements[id] = loc
	return id
}

// mapError converts Playwright detachment failures into driver.ErrStaleElement.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "not attached") || strings.Contains(msg, "detached") {
		return fmt.Errorf("%w: %w", driver.ErrStaleElement, err)
	}
	return err
}
