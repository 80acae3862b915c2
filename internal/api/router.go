package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/classifier-worker/internal/api/middleware"
)

// NewRouter wires the handler's endpoints onto a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.TraceMiddleware)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", h.Health)
	r.Post("/classify", h.Classify)

	r.Route("/jobs/{id}", func(r chi.Router) {
		r.Get("/", h.GetJobStatus)
		r.Get("/history", h.GetJobHistory)
	})

	return r
}
