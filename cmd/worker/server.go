package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phrazzld/classifier-worker/internal/api"
	"github.com/phrazzld/classifier-worker/internal/worker"
)

// httpShutdownTimeout bounds the graceful shutdown of the HTTP server.
const httpShutdownTimeout = 10 * time.Second

// setupRouter builds the HTTP surface over the application's components.
func (app *application) setupRouter() (http.Handler, error) {
	cfg := api.HandlerConfig{
		Processor: app.engine,
		Models:    app.models,
		Logger:    app.logger,
	}
	if app.worker != nil {
		cfg.Worker = app.worker
	}
	if app.statusStore != nil {
		cfg.Statuses = app.statusStore
	}

	h, err := api.NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create API handler: %w", err)
	}
	return api.NewRouter(h), nil
}

// Run starts the queue worker and the HTTP server and blocks until ctx is
// cancelled or the server fails. The worker is then given up to
// worker.shutdown_timeout to finish its in-flight batch before the
// connections are released.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	router, err := app.setupRouter()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := app.worker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting HTTP server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("HTTP server failed", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	return errors.Join(runErr, app.shutdown(server))
}

// shutdown stops the worker, then the HTTP server.
func (app *application) shutdown(server *http.Server) error {
	var errs []error

	stopCtx, cancel := context.WithTimeout(context.Background(), app.config.Worker.ShutdownTimeout)
	defer cancel()
	if err := app.worker.Stop(stopCtx); err != nil && !errors.Is(err, worker.ErrNotRunning) {
		app.logger.Error("worker shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("worker shutdown failed: %w", err))
	}

	httpCtx, httpCancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		app.logger.Error("HTTP server shutdown failed", "error", err)
		errs = append(errs, fmt.Errorf("server shutdown failed: %w", err))
	}

	return errors.Join(errs...)
}
