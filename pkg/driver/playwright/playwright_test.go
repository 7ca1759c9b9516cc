package playwright_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	pw "github.com/playwright-community/playwright-go"

	"github.com/JaimeStill/glimpse/pkg/driver"
	"github.com/JaimeStill/glimpse/pkg/driver/playwright"
	"github.com/JaimeStill/glimpse/pkg/geometry"
)

func newDriver() *playwright.Driver {
	return playwright.New(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSettingsRoundTrip(t *testing.T) {
	d := newDriver()
	ctx := context.Background()

	want := driver.Settings{ElementResponseAttributes: "name,rect"}
	if err := d.UpdateSettings(ctx, want); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	got, err := d.Settings(ctx)
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}

func TestRegisterImageElement(t *testing.T) {
	d := newDriver()
	rect := geometry.NewRect(10, 20, 30, 40)

	el, err := d.RegisterImageElement(context.Background(), []byte{0x89, 'P', 'N', 'G'}, rect)
	if err != nil {
		t.Fatalf("RegisterImageElement failed: %v", err)
	}
	if !strings.HasPrefix(el.ID, "image-") {
		t.Errorf("id = %s, want image- prefix", el.ID)
	}
	if el.Rect == nil || *el.Rect != rect {
		t.Errorf("rect = %v, want %v", el.Rect, rect)
	}

	if _, err := d.RegisterImageElement(context.Background(), nil, rect); err == nil {
		t.Error("expected error for empty template")
	}
}

func TestFindElementsRejectsStrategy(t *testing.T) {
	d := newDriver()
	if _, err := d.FindElements(context.Background(), "css selector", "div"); err == nil {
		t.Error("expected error for non-xpath strategy")
	}
}

func TestClickUnknownElement(t *testing.T) {
	d := newDriver()
	err := d.Click(context.Background(), "element-404")
	if !errors.Is(err, driver.ErrUnknownElement) {
		t.Errorf("err = %v, want ErrUnknownElement", err)
	}
}

// The embedded interfaces are aliased so the field names do not shadow the
// Locator method of pw.Locator.
type (
	basePage    = pw.Page
	baseLocator = pw.Locator
)

// page serves a fixed set of locators for every selector. Only the methods
// FindElements and Click reach are implemented.
type page struct {
	basePage
	count int
}

func (p *page) Locator(string, ...pw.PageLocatorOptions) pw.Locator {
	all := make([]pw.Locator, p.count)
	for i := range all {
		all[i] = &locator{}
	}
	return &locator{all: all}
}

type locator struct {
	baseLocator
	all    []pw.Locator
	clicks int
}

func (l *locator) All() ([]pw.Locator, error) { return l.all, nil }

func (l *locator) Click(...pw.LocatorClickOptions) error {
	l.clicks++
	return nil
}

func TestFindElementsReleasesPreviousHandles(t *testing.T) {
	d := playwright.New(&page{count: 2}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	first, err := d.FindElements(ctx, driver.StrategyXPath, "//*")
	if err != nil {
		t.Fatalf("first FindElements failed: %v", err)
	}
	second, err := d.FindElements(ctx, driver.StrategyXPath, "//*")
	if err != nil {
		t.Fatalf("second FindElements failed: %v", err)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("found %d then %d, want 2 each", len(first), len(second))
	}
	if first[0].ID == second[0].ID {
		t.Errorf("ids reused across finds: %s", first[0].ID)
	}

	if err := d.Click(ctx, first[0].ID); !errors.Is(err, driver.ErrUnknownElement) {
		t.Errorf("Click(stale) = %v, want ErrUnknownElement", err)
	}
	if err := d.Click(ctx, second[1].ID); err != nil {
		t.Errorf("Click(current) = %v", err)
	}
}
