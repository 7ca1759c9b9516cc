package classifier

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/pagination"
)

// System defines the public contract for batch classification.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Classify(ctx context.Context, req Request) (*Response, error)
	Labels() []labels.Label

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Batch], error)

	Find(ctx context.Context, id uuid.UUID) (*Batch, error)
}
