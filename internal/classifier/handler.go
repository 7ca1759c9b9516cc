package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/labels"
	"github.com/JaimeStill/glimpse/pkg/pagination"
	"github.com/JaimeStill/glimpse/pkg/routes"
)

// Handler provides HTTP endpoints for batch classification and its history.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "classifier"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for classifier endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Children: []routes.Group{
			{
				Prefix: "/classify",
				Routes: []routes.Route{
					{Method: "POST", Pattern: "", Handler: h.Classify},
					{Method: "POST", Pattern: "/upload", Handler: h.Upload},
				},
			},
			{
				Prefix: "/classifications",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.List},
					{Method: "GET", Pattern: "/{id}", Handler: h.Find},
					{Method: "POST", Pattern: "/search", Handler: h.Search},
				},
			},
			{
				Prefix: "/labels",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "", Handler: h.Labels},
				},
			},
		},
	}
}

// Classify decodes a JSON Request and returns the surviving classifications.
// Element images are base64 encoded in JSON.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}

	h.classify(w, r, req)
}

// Upload accepts a multipart form with one file part per element. The part's
// field name is the element id. labelHint, confidenceThreshold, and
// allowWeakerMatches are read from form values.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	req := Request{
		LabelHint:     labels.Label(r.FormValue("labelHint")),
		ElementImages: make(map[string][]byte),
	}

	if v := r.FormValue("confidenceThreshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: confidenceThreshold: %w", ErrInvalidRequest, err))
			return
		}
		req.ConfidenceThreshold = &t
	}

	if v := r.FormValue("allowWeakerMatches"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: allowWeakerMatches: %w", ErrInvalidRequest, err))
			return
		}
		req.AllowWeakerMatches = b
	}

	for id, files := range r.MultipartForm.File {
		if len(files) == 0 {
			continue
		}

		f, err := files[0].Open()
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, id, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %s: %w", ErrInvalidRequest, id, err))
			return
		}

		req.ElementImages[id] = data
	}

	h.classify(w, r, req)
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request, req Request) {
	resp, err := h.sys.Classify(r.Context(), req)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, resp)
}

// Labels returns the label catalog in model order.
func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.sys.Labels())
}

// List returns a paginated list of recorded batches with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a recorded batch and its results by UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	b, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, b)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching batches.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
