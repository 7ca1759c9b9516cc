package slicer_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/lifecycle"
	"github.com/JaimeStill/glimpse/pkg/slicer"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// quadrants returns a w x h image whose left half is red and right half blue.
func quadrants(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			c := color.RGBA{R: 255, A: 255}
			if x >= w/2 {
				c = color.RGBA{B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func encode(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// pngHeader returns a PNG stream holding only an IHDR chunk that declares
// a w x h RGBA image.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8
	ihdr[9] = 6

	binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	crc := crc32.NewIEEE()
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	crc.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc.Sum32())
	return buf.Bytes()
}

func TestDecodeLimit(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		img, err := slicer.DecodeLimit(encode(t, quadrants(10, 10)), 100)
		if err != nil {
			t.Fatalf("DecodeLimit failed: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
			t.Errorf("size = %dx%d, want 10x10", b.Dx(), b.Dy())
		}
	})

	t.Run("above limit", func(t *testing.T) {
		_, err := slicer.DecodeLimit(encode(t, quadrants(10, 11)), 100)
		if !errors.Is(err, slicer.ErrDecode) {
			t.Errorf("err = %v, want ErrDecode", err)
		}
	})

	t.Run("declared dimensions rejected before decode", func(t *testing.T) {
		_, err := slicer.Decode(pngHeader(100000, 100000))
		if !errors.Is(err, slicer.ErrDecode) {
			t.Fatalf("err = %v, want ErrDecode", err)
		}
		if !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("err = %v, want pixel limit error", err)
		}
	})
}

func TestSlice(t *testing.T) {
	src := quadrants(100, 50)

	t.Run("copies rect pixels", func(t *testing.T) {
		el, err := slicer.Slice(src, geometry.NewRect(40, 10, 20, 10))
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}

		b := el.Image.Bounds()
		if b.Dx() != 20 || b.Dy() != 10 {
			t.Fatalf("size = %dx%d, want 20x10", b.Dx(), b.Dy())
		}
		if c := el.Image.RGBAAt(0, 0); c.R != 255 {
			t.Errorf("left pixel = %v, want red", c)
		}
		if c := el.Image.RGBAAt(19, 0); c.B != 255 {
			t.Errorf("right pixel = %v, want blue", c)
		}
	})

	t.Run("rounds fractional extent", func(t *testing.T) {
		el, err := slicer.Slice(src, geometry.NewRect(0.6, 0.2, 9.5, 4.4))
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		if b := el.Image.Bounds(); b.Dx() != 10 || b.Dy() != 4 {
			t.Errorf("size = %dx%d, want 10x4", b.Dx(), b.Dy())
		}
	})

	t.Run("rect past edge keeps size", func(t *testing.T) {
		el, err := slicer.Slice(src, geometry.NewRect(90, 40, 20, 20))
		if err != nil {
			t.Fatalf("Slice failed: %v", err)
		}
		if b := el.Image.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
			t.Errorf("size = %dx%d, want 20x20", b.Dx(), b.Dy())
		}
		if c := el.Image.RGBAAt(15, 15); c.A != 0 {
			t.Errorf("outside pixel = %v, want transparent", c)
		}
	})

	invalid := []geometry.Rect{
		geometry.NewRect(0, 0, 0, 10),
		geometry.NewRect(0, 0, 10, 0),
		geometry.NewRect(0, 0, -5, 10),
		geometry.NewRect(0, 0, 0.4, 10),
		geometry.NewRect(math.NaN(), 0, 10, 10),
		geometry.NewRect(0, 0, math.Inf(1), 10),
		geometry.NewRect(0, 0, 1e9, 1e9),
		geometry.NewRect(0, 0, 1e9, 1),
		geometry.NewRect(200, 200, 10, 10),
		geometry.NewRect(-20, 0, 20, 10),
	}
	for _, r := range invalid {
		t.Run("invalid "+r.String(), func(t *testing.T) {
			if _, err := slicer.Slice(src, r); !errors.Is(err, slicer.ErrInvalidRect) {
				t.Errorf("err = %v, want ErrInvalidRect", err)
			}
		})
	}
}

func TestCacheExactEquality(t *testing.T) {
	cache := slicer.NewCache(quadrants(100, 50))
	rect := geometry.NewRect(10, 10, 20, 20)

	first, fresh, err := cache.Slice(rect)
	if err != nil || !fresh {
		t.Fatalf("first Slice = fresh %v, err %v", fresh, err)
	}

	second, fresh, err := cache.Slice(geometry.NewRect(10, 10, 20, 20))
	if err != nil || fresh {
		t.Fatalf("second Slice = fresh %v, err %v", fresh, err)
	}
	if first != second {
		t.Error("equal rect returned a different image")
	}

	if cache.Misses() != 1 {
		t.Errorf("Misses() = %d, want 1", cache.Misses())
	}

	if _, fresh, _ := cache.Slice(geometry.NewRect(10, 10, 20, 20.5)); !fresh {
		t.Error("near-equal rect should not hit the cache")
	}
	if cache.Misses() != 2 {
		t.Errorf("Misses() = %d, want 2", cache.Misses())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	cache := slicer.NewCache(quadrants(10, 10))
	cache.Slice(geometry.NewRect(0, 0, 0, 0))

	if cache.Misses() != 0 {
		t.Errorf("Misses() = %d, want 0", cache.Misses())
	}
}

type element struct {
	id   string
	rect *geometry.Rect
}

func rectOf(e element) *geometry.Rect { return e.rect }

func ptr(r geometry.Rect) *geometry.Rect { return &r }

func TestSliceAll(t *testing.T) {
	s := slicer.New(nil, discard())
	cache := slicer.NewCache(quadrants(100, 50))

	items := []element{
		{"a", ptr(geometry.NewRect(0, 0, 10, 10))},
		{"b", ptr(geometry.NewRect(0, 0, 10, 10))},
		{"c", nil},
		{"d", ptr(geometry.NewRect(5, 5, 0, 10))},
		{"e", ptr(geometry.NewRect(50, 0, 10, 10))},
	}

	batch := slicer.SliceAll(context.Background(), s, cache, items, rectOf)

	if len(batch.Sliced) != 3 {
		t.Fatalf("sliced = %d, want 3", len(batch.Sliced))
	}
	if len(batch.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(batch.Failures))
	}
	if !errors.Is(batch.Failures[0].Err, slicer.ErrMissingRect) {
		t.Errorf("failure c = %v, want ErrMissingRect", batch.Failures[0].Err)
	}
	if !errors.Is(batch.Failures[1].Err, slicer.ErrInvalidRect) {
		t.Errorf("failure d = %v, want ErrInvalidRect", batch.Failures[1].Err)
	}
	if cache.Misses() != 2 {
		t.Errorf("Misses() = %d, want 2", cache.Misses())
	}

	ids := []string{batch.Sliced[0].Item.id, batch.Sliced[1].Item.id, batch.Sliced[2].Item.id}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "e" {
		t.Errorf("sliced order = %v, want [a b e]", ids)
	}
	if len(batch.Images()) != 3 {
		t.Errorf("Images() = %d, want 3", len(batch.Images()))
	}
}

func TestSliceAllDropsOversizedRect(t *testing.T) {
	s := slicer.New(nil, discard())
	cache := slicer.NewCache(quadrants(40, 10))

	items := []element{
		{"ok", ptr(geometry.NewRect(0, 0, 10, 10))},
		{"huge", ptr(geometry.NewRect(0, 0, 1e9, 1e9))},
	}

	batch := slicer.SliceAll(context.Background(), s, cache, items, rectOf)

	if len(batch.Sliced) != 1 || batch.Sliced[0].Item.id != "ok" {
		t.Fatalf("sliced = %v, want [ok]", batch.Sliced)
	}
	if len(batch.Failures) != 1 || !errors.Is(batch.Failures[0].Err, slicer.ErrInvalidRect) {
		t.Fatalf("failures = %v, want one ErrInvalidRect", batch.Failures)
	}
}

func TestSliceAllPersistsNewSlices(t *testing.T) {
	store, err := storage.New(&storage.Config{Provider: storage.ProviderLocal, Path: t.TempDir()}, discard())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	lc := lifecycle.New()
	store.Start(lc)
	lc.WaitForStartup()

	sink := slicer.NewStorageSink(store, "run")
	s := slicer.New(sink, discard())
	cache := slicer.NewCache(quadrants(100, 50))

	items := []element{
		{"a", ptr(geometry.NewRect(10, 20, 30, 20))},
		{"b", ptr(geometry.NewRect(10, 20, 30, 20))},
	}
	slicer.SliceAll(context.Background(), s, cache, items, rectOf)

	ok, err := store.Exists(context.Background(), "run/element-(10, 20) [30 x 20].png")
	if err != nil || !ok {
		t.Errorf("Exists() = %v, %v; want true", ok, err)
	}
}

func TestPrepare(t *testing.T) {
	data := encode(t, quadrants(200, 100))

	t.Run("rescales to window size", func(t *testing.T) {
		img, err := slicer.Prepare(data, geometry.Size{Width: 100, Height: 50}, discard())
		if err != nil {
			t.Fatalf("Prepare failed: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
			t.Errorf("size = %dx%d, want 100x50", b.Dx(), b.Dy())
		}
		if c := img.RGBAAt(10, 10); c.R != 255 {
			t.Errorf("left pixel = %v, want red", c)
		}
	})

	t.Run("matching size untouched", func(t *testing.T) {
		img, err := slicer.Prepare(data, geometry.Size{Width: 200, Height: 100}, discard())
		if err != nil {
			t.Fatalf("Prepare failed: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
			t.Errorf("size = %dx%d, want 200x100", b.Dx(), b.Dy())
		}
	})

	t.Run("undecodable bytes", func(t *testing.T) {
		_, err := slicer.Prepare([]byte("not an image"), geometry.Size{Width: 1, Height: 1}, discard())
		if !errors.Is(err, slicer.ErrDecode) {
			t.Errorf("err = %v, want ErrDecode", err)
		}
	})
}
