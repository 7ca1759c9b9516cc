package classifier

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/glimpse/pkg/confidence"
)

// Domain errors for classification operations.
var (
	ErrNotFound        = errors.New("batch not found")
	ErrDuplicate       = errors.New("batch already exists")
	ErrInvalidRequest  = errors.New("invalid classification request")
	ErrInference       = errors.New("inference failed")
	ErrHistoryDisabled = errors.New("classification history is not enabled")
	ErrFileTooLarge    = errors.New("upload exceeds maximum size")
)

// MapHTTPStatus maps classifier domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, confidence.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
