// Package classifier implements the batch classification service. Callers
// submit pre-sliced element images with a label hint; each image is scored
// by the shared model and the survivors of match selection are returned with
// their classification metadata.
//
// History is optional and sits outside the classification contract. When a
// database is available each batch is also recorded, and the response carries
// the batch id. Without one, or when recording fails, the classifications
// are identical and only the batch id is absent. Without a database the
// history endpoints report ErrHistoryDisabled.
package classifier

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/labels"
)

// Request is a batch of named element images to classify against a hint.
// A nil ConfidenceThreshold uses the configured default.
type Request struct {
	LabelHint           labels.Label      `json:"labelHint"`
	ElementImages       map[string][]byte `json:"elementImages"`
	ConfidenceThreshold *float64          `json:"confidenceThreshold,omitempty"`
	AllowWeakerMatches  bool              `json:"allowWeakerMatches"`
}

// Response maps each surviving element id to its classification. BatchID is
// set when the batch was recorded.
type Response struct {
	Classifications map[string]confidence.Classification `json:"classifications"`
	BatchID         *uuid.UUID                           `json:"batchId,omitempty"`
}

// Batch is a recorded classification request.
type Batch struct {
	ID                  uuid.UUID `json:"id"`
	LabelHint           string    `json:"label_hint"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	AllowWeakerMatches  bool      `json:"allow_weaker_matches"`
	Submitted           int       `json:"submitted"`
	Decoded             int       `json:"decoded"`
	Matched             int       `json:"matched"`
	CreatedAt           time.Time `json:"created_at"`
	Results             []Result  `json:"results,omitempty"`
}

// Result is one surviving element of a recorded batch. Rank 0 is the best
// match for the hint.
type Result struct {
	BatchID           uuid.UUID `json:"-"`
	ElementID         string    `json:"element_id"`
	Label             string    `json:"label"`
	Confidence        float64   `json:"confidence"`
	ConfidenceForHint float64   `json:"confidence_for_hint"`
	Rank              int       `json:"rank"`
}
