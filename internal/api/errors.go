package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/classifier-worker/internal/api/shared"
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/redact"
)

// ErrStatusStoreUnavailable is returned by the job endpoints when the
// worker runs without a status store.
var ErrStatusStoreUnavailable = errors.New("status store is not configured")

// MapErrorToStatusCode maps internal errors to HTTP status codes.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStatusNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStatusStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns the message sent to the client for err.
// Job failures carry the same text the status channel would publish, with
// credentials stripped; anything else gets a generic message.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var jobErr *domain.JobError
	switch {
	case errors.Is(err, shared.ErrBodyTooLarge):
		return "Request body too large"
	case errors.Is(err, domain.ErrStatusNotFound):
		return "Job status not found"
	case errors.Is(err, ErrStatusStoreUnavailable):
		return "Job status tracking is not enabled"
	case errors.As(err, &jobErr) && jobErr.Kind != domain.KindTransport:
		return redact.Error(jobErr)
	default:
		return "An unexpected error occurred"
	}
}
