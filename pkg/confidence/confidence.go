// Package confidence turns raw model score vectors into label decisions.
//
// A score vector is mapped onto the label catalog, sorted, and compared
// against a threshold. The confidence for a caller-supplied hint label is
// always carried alongside the decision so selection policies can rank
// elements by how strongly they resemble the hint.
package confidence

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/JaimeStill/glimpse/pkg/labels"
)

// DefaultThreshold is applied when a caller supplies no threshold.
const DefaultThreshold = 0.2

var (
	// ErrLabelCountMismatch indicates the model and the catalog disagree on
	// the number of labels. It is a configuration error and is never retried.
	ErrLabelCountMismatch = errors.New("score vector length does not match label catalog")
	// ErrInvalidThreshold indicates a threshold outside [0,1].
	ErrInvalidThreshold = errors.New("confidence threshold must be within [0, 1]")
)

// Entry is one label's score.
type Entry struct {
	Label labels.Label `json:"label"`
	Score float64      `json:"score"`
}

// Map holds one entry per non-sentinel catalog label, in catalog order.
type Map []Entry

// Get returns the score for l, or false when l is not present.
func (m Map) Get(l labels.Label) (float64, bool) {
	for _, e := range m {
		if e.Label == l {
			return e.Score, true
		}
	}
	return 0, false
}

// Classification is the decision for a single element image.
type Classification struct {
	Label             labels.Label `json:"label"`
	Confidence        float64      `json:"confidence"`
	ConfidenceForHint float64      `json:"confidenceForHint"`
}

// ValidateThreshold rejects thresholds outside [0,1] and NaN.
func ValidateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	return nil
}

// ToMap pairs scores with catalog labels and drops the sentinel.
func ToMap(catalog *labels.Catalog, scores []float32) (Map, error) {
	if len(scores) != catalog.Len() {
		return nil, fmt.Errorf("%w: got %d scores for %d labels",
			ErrLabelCountMismatch, len(scores), catalog.Len())
	}

	m := make(Map, 0, catalog.Len()-1)
	for i, l := range catalog.Labels() {
		if l == labels.Unclassified {
			continue
		}
		m = append(m, Entry{Label: l, Score: float64(scores[i])})
	}
	return m, nil
}

// Decide picks the highest-scoring label, or the sentinel when that score
// falls below threshold. The hint's confidence is read before sorting and is
// zero when the hint is not in the map. Ties keep catalog order.
func Decide(m Map, threshold float64, hint labels.Label) Classification {
	hintScore, _ := m.Get(hint)

	if len(m) == 0 {
		return Classification{
			Label:             labels.Unclassified,
			ConfidenceForHint: hintScore,
		}
	}

	sorted := slices.Clone(m)
	slices.SortStableFunc(sorted, func(a, b Entry) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	top := sorted[0]
	label := top.Label
	if top.Score < threshold {
		label = labels.Unclassified
	}

	return Classification{
		Label:             label,
		Confidence:        top.Score,
		ConfidenceForHint: hintScore,
	}
}
