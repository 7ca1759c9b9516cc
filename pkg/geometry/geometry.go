// Package geometry provides the rectangle and size types shared by the
// slicer, the drivers, and the detector.
package geometry

import (
	"fmt"
	"image"
	"math"
)

// Point is a location in logical screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an element bounding box in logical screen pixels.
// Rects are compared by exact equality of all four fields.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// NewRect creates a Rect.
func NewRect(x, y, width, height float64) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Empty reports whether the rect has no positive area.
func (r Rect) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// Finite reports whether every field is a finite number.
func (r Rect) Finite() bool {
	for _, v := range [...]float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Overlaps reports whether the rect covers any part of b.
func (r Rect) Overlaps(b image.Rectangle) bool {
	return r.X < float64(b.Max.X) && r.X+r.Width > float64(b.Min.X) &&
		r.Y < float64(b.Max.Y) && r.Y+r.Height > float64(b.Min.Y)
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Pixels converts the rect to integer pixel bounds: the origin is floored
// and the extent rounded.
func (r Rect) Pixels() image.Rectangle {
	x := int(math.Floor(r.X))
	y := int(math.Floor(r.Y))
	w := int(math.Round(r.Width))
	h := int(math.Round(r.Height))
	return image.Rect(x, y, x+w, y+h)
}

// String renders the rect as "(x, y) [w x h]".
func (r Rect) String() string {
	return fmt.Sprintf("(%g, %g) [%g x %g]", r.X, r.Y, r.Width, r.Height)
}

// Size is a window or viewport size in logical pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Equals reports whether the size matches the given image bounds.
func (s Size) Equals(b image.Rectangle) bool {
	return s.Width == b.Dx() && s.Height == b.Dy()
}

// Box is a detection box in normalized [0,1] coordinates.
type Box struct {
	XMin float64 `json:"xmin"`
	YMin float64 `json:"ymin"`
	XMax float64 `json:"xmax"`
	YMax float64 `json:"ymax"`
}

// Project scales the normalized box onto a window of the given size.
func (b Box) Project(size Size) Rect {
	w := float64(size.Width)
	h := float64(size.Height)
	return Rect{
		X:      b.XMin * w,
		Y:      b.YMin * h,
		Width:  (b.XMax - b.XMin) * w,
		Height: (b.YMax - b.YMin) * h,
	}
}
