// Package match selects the classified elements that satisfy a label request.
package match

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/labels"
)

// Record pairs an element handle with its classification.
// The handle is opaque to selection and is never modified.
type Record[H any] struct {
	Handle H
	confidence.Classification
}

// Policy controls which records survive selection.
//
// In strict mode only records whose decided label equals the hint survive.
// In weak mode any record whose confidence for the hint reaches Threshold
// survives, even when another label scored higher.
type Policy struct {
	Threshold          float64
	AllowWeakerMatches bool
}

// Select filters records by policy and orders survivors by descending
// confidence for the hint. Equal confidences keep input order. The result
// is never nil.
func Select[H any](records []Record[H], hint labels.Label, policy Policy, logger *slog.Logger) []Record[H] {
	matched := make([]Record[H], 0, len(records))
	for _, r := range records {
		if keep(r.Classification, hint, policy) {
			matched = append(matched, r)
		}
	}

	slices.SortStableFunc(matched, func(a, b Record[H]) int {
		return cmp.Compare(b.ConfidenceForHint, a.ConfidenceForHint)
	})

	if len(matched) == 0 {
		logger.Info("no elements matched label",
			"label", hint,
			"candidates", len(records),
			"allow_weaker_matches", policy.AllowWeakerMatches,
		)
		return matched
	}

	top := matched[0]
	logger.Info("elements matched label",
		"label", hint,
		"matches", len(matched),
		"candidates", len(records),
		"highest_confidence", top.ConfidenceForHint,
	)

	if top.Label != hint {
		logger.Warn("best match is more likely a different label",
			"label", hint,
			"likely_label", top.Label,
			"likely_confidence", top.Confidence,
			"confidence_for_label", top.ConfidenceForHint,
		)
	}

	return matched
}

// Handles extracts the handles from records, preserving order.
func Handles[H any](records []Record[H]) []H {
	out := make([]H, len(records))
	for i, r := range records {
		out[i] = r.Handle
	}
	return out
}

func keep(c confidence.Classification, hint labels.Label, policy Policy) bool {
	if policy.AllowWeakerMatches {
		return c.ConfidenceForHint >= policy.Threshold
	}
	return c.Label == hint
}
