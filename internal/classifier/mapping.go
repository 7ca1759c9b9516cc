package classifier

import (
	"net/url"
	"strconv"

	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "batches", "b").
	Project("id", "ID").
	Project("label_hint", "LabelHint").
	Project("confidence_threshold", "ConfidenceThreshold").
	Project("allow_weaker_matches", "AllowWeakerMatches").
	Project("submitted", "Submitted").
	Project("decoded", "Decoded").
	Project("matched", "Matched").
	Project("created_at", "CreatedAt")

var resultProjection = query.
	NewProjectionMap("public", "batch_results", "r").
	Project("element_id", "ElementID").
	Project("label", "Label").
	Project("confidence", "Confidence").
	Project("confidence_for_hint", "ConfidenceForHint").
	Project("rank", "Rank").
	Project("batch_id", "BatchID")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var resultSort = query.SortField{Field: "Rank"}

// Filters contains optional filtering criteria for batch queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	LabelHint          *string `json:"label_hint,omitempty"`
	AllowWeakerMatches *bool   `json:"allow_weaker_matches,omitempty"`
	MinMatched         *int    `json:"min_matched,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("LabelHint", f.LabelHint).
		WhereEquals("AllowWeakerMatches", f.AllowWeakerMatches).
		WhereAtLeast("Matched", f.MinMatched)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if l := values.Get("label_hint"); l != "" {
		f.LabelHint = &l
	}

	if w := values.Get("allow_weaker_matches"); w != "" {
		if b, err := strconv.ParseBool(w); err == nil {
			f.AllowWeakerMatches = &b
		}
	}

	if m := values.Get("min_matched"); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			f.MinMatched = &n
		}
	}

	return f
}

func scanBatch(s repository.Scanner) (Batch, error) {
	var b Batch
	err := s.Scan(
		&b.ID,
		&b.LabelHint,
		&b.ConfidenceThreshold,
		&b.AllowWeakerMatches,
		&b.Submitted,
		&b.Decoded,
		&b.Matched,
		&b.CreatedAt,
	)
	return b, err
}

func scanResult(s repository.Scanner) (Result, error) {
	var r Result
	err := s.Scan(
		&r.ElementID,
		&r.Label,
		&r.Confidence,
		&r.ConfidenceForHint,
		&r.Rank,
		&r.BatchID,
	)
	return r, err
}
