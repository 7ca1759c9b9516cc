package classifier

import (
	"context"
	"database/sql"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/confidence"
	"github.com/JaimeStill/glimpse/pkg/geometry"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/match"
	"github.com/JaimeStill/glimpse/pkg/pagination"
	"github.com/JaimeStill/glimpse/pkg/query"
	"github.com/JaimeStill/glimpse/pkg/repository"
	"github.com/JaimeStill/glimpse/pkg/slicer"
)

type repo struct {
	db         *sql.DB
	engine     *confidence.Engine
	threshold  float64
	maxPixels  int
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a classifier implementing the System interface. A nil db
// disables history: batches are still classified but not recorded, and
// List and Find return ErrHistoryDisabled. Submitted images declaring more
// than maxPixels pixels are dropped undecoded.
func New(
	db *sql.DB,
	engine *confidence.Engine,
	threshold float64,
	maxPixels int,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		engine:     engine,
		threshold:  threshold,
		maxPixels:  maxPixels,
		logger:     logger.With("system", "classifier"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) Labels() []labels.Label {
	return r.engine.Catalog().Labels()
}

func (r *repo) Classify(ctx context.Context, req Request) (*Response, error) {
	if req.LabelHint == "" {
		return nil, fmt.Errorf("%w: label hint required", ErrInvalidRequest)
	}

	threshold := r.threshold
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}
	if err := confidence.ValidateThreshold(threshold); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	ids := slices.Sorted(maps.Keys(req.ElementImages))
	batch := r.decode(ctx, ids, req.ElementImages)

	classes, err := r.engine.ClassifyAll(ctx, batch.Images(), threshold, req.LabelHint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInference, err)
	}

	records := make([]match.Record[string], len(classes))
	for i, c := range classes {
		records[i] = match.Record[string]{Handle: batch.Sliced[i].Item, Classification: c}
	}

	selected := match.Select(records, req.LabelHint, match.Policy{
		Threshold:          threshold,
		AllowWeakerMatches: req.AllowWeakerMatches,
	}, r.logger)

	resp := &Response{
		Classifications: make(map[string]confidence.Classification, len(selected)),
	}
	for _, s := range selected {
		resp.Classifications[s.Handle] = s.Classification
	}

	if id, ok := r.record(ctx, req, threshold, len(ids), len(batch.Sliced), selected); ok {
		resp.BatchID = &id
	}

	r.logger.InfoContext(ctx, "batch classified",
		"label", req.LabelHint,
		"submitted", len(ids),
		"decoded", len(batch.Sliced),
		"matched", len(selected),
	)
	return resp, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Batch], error) {
	if r.db == nil {
		return nil, ErrHistoryDisabled
	}

	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "LabelHint")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count batches: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanBatch)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Batch, error) {
	if r.db == nil {
		return nil, ErrHistoryDisabled
	}

	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	b, err := repository.QueryOne(ctx, r.db, q, args, scanBatch)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	rq, rargs := query.
		NewBuilder(resultProjection, resultSort).
		WhereEquals("BatchID", id).
		Build()

	results, err := repository.QueryMany(ctx, r.db, rq, rargs, scanResult)
	if err != nil {
		return nil, fmt.Errorf("query batch results: %w", err)
	}
	b.Results = results

	return &b, nil
}

// decode turns each submitted image into an element image covering its full
// bounds. Entries that fail to decode are logged and left out of the batch.
func (r *repo) decode(ctx context.Context, ids []string, images map[string][]byte) slicer.Batch[string] {
	batch := slicer.Batch[string]{
		Sliced:   make([]slicer.Sliced[string], 0, len(ids)),
		Failures: make([]slicer.Failure[string], 0),
	}

	for _, id := range ids {
		img, err := slicer.DecodeLimit(images[id], r.maxPixels)
		if err == nil && img.Bounds().Empty() {
			err = fmt.Errorf("%w: %s", slicer.ErrInvalidRect, id)
		}
		if err != nil {
			r.logger.WarnContext(ctx, "skipping element image", "id", id, "error", err)
			batch.Failures = append(batch.Failures, slicer.Failure[string]{Item: id, Err: err})
			continue
		}

		batch.Sliced = append(batch.Sliced, slicer.Sliced[string]{
			Item:  id,
			Image: &slicer.ElementImage{Rect: fullRect(img), Image: img},
		})
	}

	return batch
}

// record stores the batch and its surviving results. Failures are logged and
// never fail the classification.
func (r *repo) record(
	ctx context.Context,
	req Request,
	threshold float64,
	submitted, decoded int,
	selected []match.Record[string],
) (uuid.UUID, bool) {
	if r.db == nil {
		return uuid.Nil, false
	}

	insertBatch := `
		INSERT INTO batches(
			label_hint, confidence_threshold, allow_weaker_matches,
			submitted, decoded, matched
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	insertResult := `
		INSERT INTO batch_results(
			batch_id, element_id, label, confidence, confidence_for_hint, rank
		)
		VALUES ($1, $2, $3, $4, $5, $6)`

	id, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (uuid.UUID, error) {
		var id uuid.UUID
		err := tx.QueryRowContext(ctx, insertBatch,
			string(req.LabelHint),
			threshold,
			req.AllowWeakerMatches,
			submitted,
			decoded,
			len(selected),
		).Scan(&id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert batch: %w", err)
		}

		err = repository.ExecEach(ctx, tx, insertResult, selected, func(rank int, s match.Record[string]) []any {
			return []any{id, s.Handle, string(s.Label), s.Confidence, s.ConfidenceForHint, rank}
		})
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert results: %w", err)
		}

		return id, nil
	})

	if err != nil {
		r.logger.WarnContext(ctx, "batch history not recorded", "error", err)
		return uuid.Nil, false
	}

	return id, true
}

func fullRect(img image.Image) geometry.Rect {
	b := img.Bounds()
	return geometry.NewRect(0, 0, float64(b.Dx()), float64(b.Dy()))
}
