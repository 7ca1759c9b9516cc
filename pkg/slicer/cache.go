package slicer

import (
	"image"
	"sync"

	"github.com/JaimeStill/glimpse/pkg/geometry"
)

// Cache memoizes slices of one screenshot for the lifetime of one
// operation. Lookups match only rects equal in all four fields; there is
// no overlap or containment matching. Failed slices are not cached.
type Cache struct {
	screenshot image.Image

	mu     sync.Mutex
	slices map[geometry.Rect]*ElementImage
	misses int
}

// NewCache creates an empty cache over screenshot.
func NewCache(screenshot image.Image) *Cache {
	return &Cache{
		screenshot: screenshot,
		slices:     make(map[geometry.Rect]*ElementImage),
	}
}

// Slice returns the image for rect, computing it on first request.
// fresh reports whether this call computed the slice.
func (c *Cache) Slice(rect geometry.Rect) (img *ElementImage, fresh bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if img, ok := c.slices[rect]; ok {
		return img, false, nil
	}

	img, err = Slice(c.screenshot, rect)
	if err != nil {
		return nil, false, err
	}

	c.slices[rect] = img
	c.misses++
	return img, true, nil
}

// Misses returns how many slices were actually computed.
func (c *Cache) Misses() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.misses
}
