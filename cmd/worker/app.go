package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/config"
	"github.com/phrazzld/classifier-worker/internal/domain"
	"github.com/phrazzld/classifier-worker/internal/platform/gemini"
	"github.com/phrazzld/classifier-worker/internal/platform/inference"
	"github.com/phrazzld/classifier-worker/internal/platform/rabbitmq"
	"github.com/phrazzld/classifier-worker/internal/platform/redis"
	"github.com/phrazzld/classifier-worker/internal/platform/s3"
	"github.com/phrazzld/classifier-worker/internal/platform/sqs"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// application holds the wired components and the resources to release on
// shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	models      map[domain.JobKind]classify.Classifier
	engine      *classify.Engine
	worker      *worker.Worker
	statusStore *redis.StatusStore

	// closers release broker and cache connections, in order.
	closers []func() error
}

// transport is the request queue plus the status channel of one backend.
type transport struct {
	queue     worker.Queue
	publisher worker.Reporter
	close     func() error
}

// newApplication wires every component from cfg. Connections opened before
// a failure are closed again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	models, err := newClassifiers(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.models = models
	logger.Info("classifiers initialized",
		"standard_model", models[domain.JobKindStandard].Name(),
		"custom_model", models[domain.JobKindCustom].Name())

	source, err := newImageSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	app.engine, err = classify.NewEngine(source, models, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification engine: %w", err)
	}

	tr, err := newTransport(cfg, logger)
	if err != nil {
		return nil, err
	}
	if tr.close != nil {
		app.closers = append(app.closers, tr.close)
	}
	logger.Info("queue transport initialized", "backend", cfg.Queue.Backend)

	reporters := worker.MultiReporter{tr.publisher}
	if cfg.StatusStore.RedisURL != "" {
		app.statusStore, err = redis.Connect(ctx, cfg.StatusStore.RedisURL, cfg.StatusStore.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize status store: %w", err)
		}
		app.closers = append(app.closers, app.statusStore.Close)
		reporters = append(reporters, app.statusStore)
		logger.Info("status store initialized", "ttl", cfg.StatusStore.TTL)
	}

	app.worker, err = worker.NewWorker(tr.queue, app.engine, reporters, worker.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker: %w", err)
	}

	logger.Info("application initialized successfully", "worker_id", app.worker.ID())
	return app, nil
}

// newClassifiers builds the closed-vocabulary classifier for standard jobs
// and the open-vocabulary classifier selected by inference.open_backend for
// custom jobs.
func newClassifiers(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (map[domain.JobKind]classify.Classifier, error) {
	client := inference.NewClient(cfg.Inference.BaseURL, cfg.Inference.Timeout)

	closed, err := inference.NewClosedVocabulary(client, cfg.Inference.ClosedModelName, cfg.Inference.InputSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create closed-vocabulary classifier: %w", err)
	}

	var open classify.Classifier
	switch cfg.Inference.OpenBackend {
	case "gemini":
		open, err = gemini.New(ctx, logger, cfg.Gemini)
	case "http":
		open, err = inference.NewOpenVocabulary(client, cfg.Inference.OpenModelName, cfg.Inference.InputSize)
	default:
		err = fmt.Errorf("unsupported open-vocabulary backend %q", cfg.Inference.OpenBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create open-vocabulary classifier: %w", err)
	}

	return map[domain.JobKind]classify.Classifier{
		domain.JobKindStandard: closed,
		domain.JobKindCustom:   open,
	}, nil
}

func newImageSource(cfg *config.Config, logger *slog.Logger) (*s3.ImageSource, error) {
	client, err := s3.NewClient(cfg.Images)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	source, err := s3.NewImageSource(client, cfg.Images.MaxBytes, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create image source: %w", err)
	}
	return source, nil
}

// newTransport connects the request queue and status channel of the
// configured backend.
func newTransport(cfg *config.Config, logger *slog.Logger) (*transport, error) {
	switch cfg.Queue.Backend {
	case "sqs":
		client, err := sqs.NewClient(cfg.Queue)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQS client: %w", err)
		}
		queue, err := sqs.NewQueue(client, cfg.Queue.RequestURL, cfg.Queue.VisibilityTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create request queue: %w", err)
		}
		publisher, err := sqs.NewStatusPublisher(client, cfg.Queue.StatusURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create status publisher: %w", err)
		}
		return &transport{queue: queue, publisher: publisher}, nil

	case "rabbitmq":
		broker, err := rabbitmq.Dial(cfg.Queue.AMQPURL, logger, cfg.Queue.RequestURL, cfg.Queue.StatusURL)
		if err != nil {
			return nil, err
		}
		return &transport{
			queue:     broker.Queue(cfg.Queue.RequestURL, rabbitmq.DefaultPollInterval),
			publisher: broker.StatusPublisher(cfg.Queue.StatusURL),
			close:     broker.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Queue.Backend)
	}
}

// cleanup releases broker and cache connections.
func (app *application) cleanup() {
	var errs []error
	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil

	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error releasing resources", "error", err)
	}
	app.logger.Info("application shutdown completed")
}
