package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/classifier-worker/internal/api"
	"github.com/phrazzld/classifier-worker/internal/api/shared"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("j", domain.ErrMissingCustomLabels), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("ctx: %w", domain.NewValidationError("j", errors.New("x"))), http.StatusBadRequest},
		{"resolution", domain.NewResolutionError("j", "k", errors.New("x")), http.StatusInternalServerError},
		{"inference", domain.NewInferenceError("j", "k", errors.New("x")), http.StatusInternalServerError},
		{"not found", domain.ErrStatusNotFound, http.StatusNotFound},
		{"no store", api.ErrStatusStoreUnavailable, http.StatusServiceUnavailable},
		{"body too large", shared.ErrBodyTooLarge, http.StatusRequestEntityTooLarge},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, api.MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred", api.GetSafeErrorMessage(errors.New("pq: secret")))
	assert.Equal(t, "Job status not found", api.GetSafeErrorMessage(domain.ErrStatusNotFound))

	infErr := domain.NewInferenceError("j", "in/a.jpg",
		errors.New("POST https://user:pw@inference/v1/classify: 502"))
	assert.Equal(t,
		"classification failed for in/a.jpg: POST https://[REDACTED_CREDENTIAL]@inference/v1/classify: 502",
		api.GetSafeErrorMessage(infErr))
}
