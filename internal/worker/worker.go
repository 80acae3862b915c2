package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Common errors
var (
	ErrNilQueue       = errors.New("queue cannot be nil")
	ErrNilProcessor   = errors.New("processor cannot be nil")
	ErrNilReporter    = errors.New("reporter cannot be nil")
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrAlreadyRunning = errors.New("worker is already running")
	ErrNotRunning     = errors.New("worker is not running")
)

// Stats is a snapshot of the worker counters.
type Stats struct {
	Received      uint64 `json:"received"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	ReceiveErrors uint64 `json:"receive_errors"`
	ReportErrors  uint64 `json:"report_errors"`
	DeleteErrors  uint64 `json:"delete_errors"`
}

type counters struct {
	received      atomic.Uint64
	completed     atomic.Uint64
	failed        atomic.Uint64
	receiveErrors atomic.Uint64
	reportErrors  atomic.Uint64
	deleteErrors  atomic.Uint64
}

// Worker consumes the request queue and hands each job to a Processor.
type Worker struct {
	id        string
	queue     Queue
	processor Processor
	reporter  Reporter
	config    Config
	logger    *slog.Logger

	// errHandler is called when a message ends in a failed status.
	// If nil, failures are only logged.
	errHandler func(msg Message, err error)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	stats counters
}

// NewWorker creates a worker. It does not start consuming until Start.
func NewWorker(
	queue Queue,
	processor Processor,
	reporter Reporter,
	config Config,
	logger *slog.Logger,
) (*Worker, error) {
	if queue == nil {
		return nil, ErrNilQueue
	}
	if processor == nil {
		return nil, ErrNilProcessor
	}
	if reporter == nil {
		return nil, ErrNilReporter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	id := uuid.NewString()
	logger = logger.With("component", "queue_worker", "worker_id", id)

	if config.MaxConcurrency <= 0 {
		logger.Warn("invalid max concurrency specified, using default",
			"specified", config.MaxConcurrency,
			"default", 1)
		config.MaxConcurrency = 1
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultConfig().ErrorBackoff
	}
	if config.MaxErrorBackoff < config.ErrorBackoff {
		config.MaxErrorBackoff = config.ErrorBackoff
	}

	return &Worker{
		id:        id,
		queue:     queue,
		processor: processor,
		reporter:  reporter,
		config:    config,
		logger:    logger,
	}, nil
}

// ID returns the identifier the worker logs under.
func (w *Worker) ID() string {
	return w.id
}

// SetErrorHandler allows setting a custom handler for failed messages.
// It must be called before Start.
func (w *Worker) SetErrorHandler(handler func(msg Message, err error)) {
	w.errHandler = handler
}

// Running reports whether the receive loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Received:      w.stats.received.Load(),
		Completed:     w.stats.completed.Load(),
		Failed:        w.stats.failed.Load(),
		ReceiveErrors: w.stats.receiveErrors.Load(),
		ReportErrors:  w.stats.reportErrors.Load(),
		DeleteErrors:  w.stats.deleteErrors.Load(),
	}
}

// Start launches the receive loop in the background.
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	w.logger.Info("worker started",
		"batch_size", w.config.BatchSize,
		"max_concurrency", w.config.MaxConcurrency,
		"wait_time", w.config.WaitTime)

	go w.run(ctx, w.done)
	return nil
}

// Stop signals the loop to exit and waits for the in-flight batch to finish.
// If ctx expires first, Stop returns its error and the batch keeps running
// in the background until it completes.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	w.logger.Info("stopping worker")
	cancel()

	select {
	case <-done:
		w.logger.Info("worker stopped", "stats", w.Stats())
		return nil
	case <-ctx.Done():
		w.logger.Warn("worker stop timed out with batch still in flight")
		return fmt.Errorf("waiting for in-flight batch: %w", ctx.Err())
	}
}

// run is the receive loop. It exits once ctx is cancelled and the current
// batch, if any, has been fully processed.
func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(done)
	}()

	backoff := w.newBackoff()

	for ctx.Err() == nil {
		msgs, err := w.ReceiveBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			delay, _ := backoff.Next()
			w.logger.Error("failed to receive messages",
				"error", err,
				"retry_in", delay)
			if !sleep(ctx, delay) {
				return
			}
			continue
		}
		backoff = w.newBackoff()

		if len(msgs) == 0 {
			if !sleep(ctx, w.config.IdleInterval) {
				return
			}
			continue
		}

		// In-flight work outlives the shutdown signal.
		w.processBatch(context.WithoutCancel(ctx), msgs)
	}
}

func (w *Worker) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(w.config.MaxErrorBackoff, retry.NewExponential(w.config.ErrorBackoff))
}

// sleep waits for d or until ctx is done, reporting whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// ReceiveBatch long-polls the queue for the next batch of messages.
func (w *Worker) ReceiveBatch(ctx context.Context) ([]Message, error) {
	msgs, err := w.queue.Receive(ctx, w.config.BatchSize, w.config.WaitTime)
	if err != nil {
		w.stats.receiveErrors.Add(1)
		return nil, domain.NewTransportError("", err)
	}
	if len(msgs) > 0 {
		w.stats.received.Add(uint64(len(msgs)))
		w.logger.Debug("received batch", "count", len(msgs))
	}
	return msgs, nil
}

// processBatch processes every message of the batch, at most
// MaxConcurrency at a time, and returns once all of them are done.
func (w *Worker) processBatch(ctx context.Context, msgs []Message) {
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(w.config.MaxConcurrency)
	for _, msg := range msgs {
		g.Go(func() error {
			w.ProcessMessage(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	w.logger.Info("batch processed",
		"count", len(msgs),
		"duration_ms", domain.Milliseconds(time.Since(start)))
}

// ProcessMessage runs one message through parse, classify, report and
// acknowledge, returning the status that was reported.
//
// The message is acknowledged whatever the outcome, so a job that fails is
// never redelivered by this worker. Status publishing and acknowledgment
// failures are logged and counted but do not change the returned status.
func (w *Worker) ProcessMessage(ctx context.Context, msg Message) domain.StatusMessage {
	logger := w.logger.With("message_id", msg.ID)
	if msg.ReceiveCount > 0 {
		logger = logger.With("receive_count", msg.ReceiveCount)
	}

	status, err := w.execute(ctx, logger, msg)
	if err != nil {
		w.stats.failed.Add(1)
		if w.errHandler != nil {
			w.errHandler(msg, err)
		}
	} else {
		w.stats.completed.Add(1)
	}

	if err := w.reporter.Report(ctx, status); err != nil {
		w.stats.reportErrors.Add(1)
		logger.Error("failed to publish job status",
			"job_id", status.JobID,
			"status", status.Status,
			"error", err)
	}

	if err := w.queue.Delete(ctx, msg); err != nil {
		w.stats.deleteErrors.Add(1)
		logger.Error("failed to delete message",
			"job_id", status.JobID,
			"error", domain.NewTransportError(status.JobID, err))
	}

	return status
}

// execute parses and classifies the job carried by msg. A panic raised while
// processing is converted into a failed status.
func (w *Worker) execute(
	ctx context.Context,
	logger *slog.Logger,
	msg Message,
) (status domain.StatusMessage, err error) {
	var job domain.Job

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during job processing: %v", r)
			logger.Error("recovered from panic",
				"job_id", job.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			status = domain.NewFailedStatus(job.ID, job.RetryCount, err)
		}
	}()

	job, err = domain.ParseJob(msg.Body)
	if err != nil {
		logger.Warn("rejected malformed job",
			"job_id", job.ID,
			"error", err)
		return domain.NewFailedStatus(job.ID, job.RetryCount, err), err
	}

	logger = logger.With("job_id", job.ID, "job_type", job.Kind)
	if job.RetryCount > 0 {
		logger = logger.With("retry_count", job.RetryCount)
	}
	logger.Info("processing job", "images", len(job.Keys))

	result, err := w.processor.ClassifyBatch(ctx, job)
	if err != nil {
		logger.Error("job failed",
			"error_kind", domain.KindOf(err),
			"error", err)
		return domain.NewFailedStatus(job.ID, job.RetryCount, err), err
	}

	logger.Info("job completed",
		"classified", result.Summary.Classified,
		"unknown", result.Summary.Unknown)
	return domain.NewCompletedStatus(result), nil
}
