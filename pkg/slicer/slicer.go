// Package slicer cuts per-element sub-images out of a screenshot.
//
// Rects are in logical pixels, so a screenshot captured at a different
// device scale is first rescaled to the logical window size by Prepare.
// Slices are memoized per operation in a Cache keyed on exact rect equality.
package slicer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/JaimeStill/glimpse/pkg/geometry"
)

var (
	// ErrInvalidRect indicates a rect that cannot be sliced: no positive
	// pixel area, a non-finite field, no overlap with the screenshot, or an
	// area above MaxAreaFactor times the screenshot's.
	ErrInvalidRect = errors.New("invalid element rect")
	// ErrMissingRect indicates an element without a bounding rect.
	ErrMissingRect = errors.New("element has no rect")
	// ErrDecode indicates the screenshot or element image could not be decoded.
	ErrDecode = errors.New("image decode failed")
)

// MaxAreaFactor caps a slice's pixel area as a multiple of the screenshot's.
const MaxAreaFactor = 4

// ElementImage is the sub-image cut from a screenshot at Rect.
type ElementImage struct {
	Rect  geometry.Rect
	Image *image.RGBA
}

// Slice copies the pixels of rect out of screenshot. The origin is floored
// and the extent rounded; regions outside the screenshot stay transparent.
// The rect must overlap the screenshot.
func Slice(screenshot image.Image, rect geometry.Rect) (*ElementImage, error) {
	if !rect.Finite() || rect.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRect, rect)
	}

	bounds := screenshot.Bounds()
	limit := float64(max(bounds.Dx()*bounds.Dy(), 1)) * MaxAreaFactor
	if rect.Width > limit || rect.Height > limit || rect.Width*rect.Height > limit {
		return nil, fmt.Errorf("%w: %s exceeds %g pixels", ErrInvalidRect, rect, limit)
	}
	if !rect.Overlaps(bounds) {
		return nil, fmt.Errorf("%w: %s outside screenshot %v", ErrInvalidRect, rect, bounds)
	}

	px := rect.Pixels()
	if px.Empty() || float64(px.Dx())*float64(px.Dy()) > limit || !px.Overlaps(bounds) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRect, rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, px.Dx(), px.Dy()))
	draw.Draw(dst, dst.Bounds(), screenshot, px.Min, draw.Src)

	return &ElementImage{Rect: rect, Image: dst}, nil
}

// DefaultMaxPixels is the largest pixel count Decode accepts.
const DefaultMaxPixels = 40_000_000

// Decode decodes a PNG or JPEG image into RGBA, limited to DefaultMaxPixels.
func Decode(data []byte) (*image.RGBA, error) {
	return DecodeLimit(data, DefaultMaxPixels)
}

// DecodeLimit decodes a PNG or JPEG image into RGBA. The header is read
// first and images declaring more than maxPixels pixels fail with ErrDecode
// before any pixel buffer is allocated. A non-positive maxPixels applies
// DefaultMaxPixels.
func DecodeLimit(data []byte, maxPixels int) (*image.RGBA, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return toRGBA(img), nil
}

// Prepare decodes a screenshot and rescales it to the logical window size
// when its pixel dimensions differ.
func Prepare(data []byte, size geometry.Size, logger *slog.Logger) (*image.RGBA, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if size.Width < 1 || size.Height < 1 || size.Equals(img.Bounds()) {
		return img, nil
	}

	logger.Info("rescaling screenshot to window size",
		"screenshot_width", img.Bounds().Dx(),
		"screenshot_height", img.Bounds().Dy(),
		"window_width", size.Width,
		"window_height", size.Height,
	)

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// EncodePNG encodes an element image as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Sliced is an item whose image was cut successfully.
type Sliced[E any] struct {
	Item  E
	Image *ElementImage
}

// Failure is an item that could not be sliced.
type Failure[E any] struct {
	Item E
	Err  error
}

// Batch holds the per-item results of SliceAll.
type Batch[E any] struct {
	Sliced   []Sliced[E]
	Failures []Failure[E]
}

// Images returns the successfully sliced images in item order.
func (b Batch[E]) Images() []image.Image {
	out := make([]image.Image, len(b.Sliced))
	for i, s := range b.Sliced {
		out[i] = s.Image.Image
	}
	return out
}

// Slicer slices batches of elements and optionally persists each new slice.
type Slicer struct {
	sink   Sink
	logger *slog.Logger
}

// New creates a Slicer. A nil sink disables persistence.
func New(sink Sink, logger *slog.Logger) *Slicer {
	return &Slicer{
		sink:   sink,
		logger: logger.With("system", "slicer"),
	}
}

// SliceAll slices every item through cache. Items that fail are logged and
// reported in the batch but never abort the others.
func SliceAll[E any](
	ctx context.Context,
	s *Slicer,
	cache *Cache,
	items []E,
	rectOf func(E) *geometry.Rect,
) Batch[E] {
	batch := Batch[E]{
		Sliced:   make([]Sliced[E], 0, len(items)),
		Failures: make([]Failure[E], 0),
	}

	for _, item := range items {
		rect := rectOf(item)
		if rect == nil {
			s.logger.WarnContext(ctx, "skipping element", "error", ErrMissingRect)
			batch.Failures = append(batch.Failures, Failure[E]{Item: item, Err: ErrMissingRect})
			continue
		}

		img, fresh, err := cache.Slice(*rect)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping element", "rect", rect.String(), "error", err)
			batch.Failures = append(batch.Failures, Failure[E]{Item: item, Err: err})
			continue
		}

		if fresh && s.sink != nil {
			if err := s.sink.Save(ctx, img); err != nil {
				s.logger.WarnContext(ctx, "element image not saved", "rect", rect.String(), "error", err)
			}
		}

		batch.Sliced = append(batch.Sliced, Sliced[E]{Item: item, Image: img})
	}

	s.logger.InfoContext(ctx, "elements sliced",
		"sliced", len(batch.Sliced),
		"failed", len(batch.Failures),
		"slices_computed", cache.Misses(),
	)

	return batch
}
