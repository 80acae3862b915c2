package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/classifier-worker/internal/api/shared"
)

func TestTraceMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
	})

	t.Run("generates trace id", func(t *testing.T) {
		w := httptest.NewRecorder()
		TraceMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Trace-Id"))
	})

	t.Run("reuses chi request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := chimw.RequestID(TraceMiddleware(next))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(chimw.RequestIDHeader, "upstream-id")
		handler.ServeHTTP(w, req)

		assert.Equal(t, "upstream-id", seen)
		assert.Equal(t, "upstream-id", w.Header().Get("X-Trace-Id"))
	})
}
