package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/glimpse/pkg/handlers"
	"github.com/JaimeStill/glimpse/pkg/openapi"
	"github.com/JaimeStill/glimpse/pkg/routes"
	"github.com/JaimeStill/glimpse/pkg/storage"
)

// storageHandler serves element slices persisted by the finder's debug sink.
type storageHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newStorageHandler(store storage.System, logger *slog.Logger) *storageHandler {
	return &storageHandler{
		store:  store,
		logger: logger.With("handler", "storage"),
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/debug",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
			{Method: "DELETE", Pattern: "/{key...}", Handler: h.delete},
		},
	}
}

func (h *storageHandler) paths() map[string]*openapi.PathItem {
	key := []*openapi.Parameter{openapi.PathParam("key", "", "Storage key of the slice")}
	tags := []string{"Debug"}

	return map[string]*openapi.PathItem{
		"/debug/{key}": {
			Get: &openapi.Operation{
				Summary:    "Download a persisted element slice",
				Tags:       tags,
				Parameters: key,
				Responses: openapi.Responses(http.StatusOK, &openapi.Response{
					Description: "PNG image",
					Content: map[string]*openapi.MediaType{
						"image/png": {Schema: &openapi.Schema{Type: "string", Format: "binary"}},
					},
				}, http.StatusBadRequest, http.StatusNotFound),
			},
			Delete: &openapi.Operation{
				Summary:    "Delete a persisted element slice",
				Tags:       tags,
				Parameters: key,
				Responses: openapi.Responses(http.StatusNoContent, &openapi.Response{Description: "Deleted"},
					http.StatusBadRequest, http.StatusNotFound),
			},
		},
	}
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("debug image copy interrupted", "key", key, "error", err)
	}
}

func (h *storageHandler) delete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	if err := h.store.Delete(r.Context(), key); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
