// Package detector defines object detection over screenshots.
package detector

import (
	"context"

	"github.com/JaimeStill/glimpse/pkg/geometry"
)

// DefaultThreshold is the detection confidence cutoff when none is configured.
// It is independent of the classification threshold.
const DefaultThreshold = 0.95

// Candidate is a detected object in normalized [0,1] coordinates.
type Candidate struct {
	geometry.Box
	Confidence float64 `json:"confidence"`
}

// Detector finds candidate objects in an image file.
type Detector interface {
	Detect(ctx context.Context, imagePath string, threshold float64, debug bool) ([]Candidate, error)
}

// Func adapts a function to Detector.
type Func func(ctx context.Context, imagePath string, threshold float64, debug bool) ([]Candidate, error)

func (f Func) Detect(ctx context.Context, imagePath string, threshold float64, debug bool) ([]Candidate, error) {
	return f(ctx, imagePath, threshold, debug)
}
