package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/classifier-worker/internal/api/shared"
	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// DefaultReadyTimeout bounds each classifier readiness probe in GET /health.
const DefaultReadyTimeout = 2 * time.Second

// Common errors
var (
	ErrNilProcessor = errors.New("processor cannot be nil")
	ErrNilLogger    = errors.New("logger cannot be nil")
)

// StatusReader looks up recorded job statuses.
type StatusReader interface {
	Get(ctx context.Context, jobID string) (domain.StatusMessage, error)
	History(ctx context.Context, jobID string) ([]domain.StatusMessage, error)
}

// WorkerMonitor exposes the state of a running queue worker.
type WorkerMonitor interface {
	ID() string
	Running() bool
	Stats() worker.Stats
}

// readyChecker is implemented by classifiers that can probe their backend.
type readyChecker interface {
	Ready(ctx context.Context) error
}

// pinger is implemented by status stores that can probe their backend.
type pinger interface {
	Ping(ctx context.Context) error
}

// HandlerConfig holds the dependencies of a Handler. Worker and Statuses
// are optional.
type HandlerConfig struct {
	Processor    worker.Processor
	Models       map[domain.JobKind]classify.Classifier
	Worker       WorkerMonitor
	Statuses     StatusReader
	MaxBodyBytes int64
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// Handler serves the HTTP endpoints.
type Handler struct {
	processor    worker.Processor
	models       map[domain.JobKind]classify.Classifier
	worker       WorkerMonitor
	statuses     StatusReader
	maxBodyBytes int64
	readyTimeout time.Duration
	logger       *slog.Logger
}

// NewHandler creates a Handler from cfg.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Processor == nil {
		return nil, ErrNilProcessor
	}
	if cfg.Logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}

	return &Handler{
		processor:    cfg.Processor,
		models:       cfg.Models,
		worker:       cfg.Worker,
		statuses:     cfg.Statuses,
		maxBodyBytes: cfg.MaxBodyBytes,
		readyTimeout: cfg.ReadyTimeout,
		logger:       cfg.Logger.With(slog.String("component", "api_handler")),
	}, nil
}

// Classify handles POST /classify. The body is an inbound job message; the
// job runs synchronously and its BatchResult is returned.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	log := h.logger.With(slog.String("trace_id", shared.GetTraceID(r.Context())))

	body, err := shared.ReadBody(w, r, h.maxBodyBytes)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	job, err := domain.ParseJob(body)
	if err != nil {
		log.Debug("rejected invalid job", slog.String("job_id", job.ID), slog.Any("error", err))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, GetSafeErrorMessage(err), err)
		return
	}

	log.Info("classifying job synchronously",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Kind)),
		slog.Int("images", len(job.Keys)))

	result, err := h.processor.ClassifyBatch(r.Context(), job)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// GetJobStatus handles GET /jobs/{id}.
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if h.statuses == nil {
		h.respondError(w, r, ErrStatusStoreUnavailable)
		return
	}

	status, err := h.statuses.Get(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, status)
}

// GetJobHistory handles GET /jobs/{id}/history.
func (h *Handler) GetJobHistory(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if h.statuses == nil {
		h.respondError(w, r, ErrStatusStoreUnavailable)
		return
	}

	attempts, err := h.statuses.History(r.Context(), jobID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if len(attempts) == 0 {
		h.respondError(w, r, domain.ErrStatusNotFound)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, JobHistoryResponse{JobID: jobID, Attempts: attempts})
}

// Health handles GET /health. It answers 200 when everything is ready and
// 503 otherwise, with the same body shape in both cases.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		Models:      h.modelHealth(r.Context()),
		StatusStore: h.statusStoreHealth(r.Context()),
	}

	for _, m := range resp.Models {
		if !m.Ready {
			resp.Status = "degraded"
		}
	}
	if resp.StatusStore == "unreachable" {
		resp.Status = "degraded"
	}

	if h.worker != nil {
		resp.Worker = &WorkerHealth{
			ID:      h.worker.ID(),
			Running: h.worker.Running(),
			Stats:   h.worker.Stats(),
		}
		if !resp.Worker.Running {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	shared.RespondWithJSON(w, r, code, resp)
}

func (h *Handler) modelHealth(ctx context.Context) []ModelHealth {
	out := make([]ModelHealth, 0, len(h.models))
	for kind, clf := range h.models {
		m := ModelHealth{JobType: kind, Name: clf.Name(), Ready: true}
		if rc, ok := clf.(readyChecker); ok {
			probeCtx, cancel := context.WithTimeout(ctx, h.readyTimeout)
			if err := rc.Ready(probeCtx); err != nil {
				m.Ready = false
				m.Error = GetSafeErrorMessage(err)
				h.logger.WarnContext(ctx, "classifier not ready",
					slog.String("job_type", string(kind)),
					slog.String("model", m.Name),
					slog.Any("error", err))
			}
			cancel()
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobType < out[j].JobType })
	return out
}

func (h *Handler) statusStoreHealth(ctx context.Context) string {
	if h.statuses == nil {
		return "disabled"
	}
	p, ok := h.statuses.(pinger)
	if !ok {
		return "ok"
	}
	probeCtx, cancel := context.WithTimeout(ctx, h.readyTimeout)
	defer cancel()
	if err := p.Ping(probeCtx); err != nil {
		h.logger.WarnContext(ctx, "status store unreachable", slog.Any("error", err))
		return "unreachable"
	}
	return "ok"
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
