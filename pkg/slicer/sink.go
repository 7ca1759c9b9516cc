package slicer

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/JaimeStill/glimpse/pkg/storage"
)

// Sink persists element images for offline inspection.
type Sink interface {
	Save(ctx context.Context, img *ElementImage) error
}

// StorageSink writes element images as PNG blobs under a key prefix.
type StorageSink struct {
	store  storage.System
	prefix string
}

// NewStorageSink creates a sink that writes into store under prefix.
func NewStorageSink(store storage.System, prefix string) *StorageSink {
	return &StorageSink{store: store, prefix: prefix}
}

// Key returns the blob key for an element image: element-(x, y) [w x h].png.
func (s *StorageSink) Key(img *ElementImage) string {
	return path.Join(s.prefix, fmt.Sprintf("element-%s.png", img.Rect))
}

// Save encodes img as PNG and uploads it.
func (s *StorageSink) Save(ctx context.Context, img *ElementImage) error {
	data, err := EncodePNG(img.Image)
	if err != nil {
		return err
	}
	return s.store.Upload(ctx, s.Key(img), bytes.NewReader(data), "image/png")
}
