package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/classifier-worker/internal/domain"
)

// Common errors
var (
	ErrNilImageSource  = errors.New("image source cannot be nil")
	ErrNilClassifier   = errors.New("classifier cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrNoClassifiers   = errors.New("at least one classifier is required")
	ErrUnsupportedKind = errors.New("no classifier registered for job type")
)

// Engine classifies every image of a job and aggregates the results.
type Engine struct {
	source      ImageSource
	classifiers map[domain.JobKind]Classifier
	logger      *slog.Logger
}

// NewEngine creates an engine that dispatches each job kind to its classifier.
func NewEngine(
	source ImageSource,
	classifiers map[domain.JobKind]Classifier,
	logger *slog.Logger,
) (*Engine, error) {
	if source == nil {
		return nil, ErrNilImageSource
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if len(classifiers) == 0 {
		return nil, ErrNoClassifiers
	}

	registered := make(map[domain.JobKind]Classifier, len(classifiers))
	for kind, clf := range classifiers {
		if clf == nil {
			return nil, fmt.Errorf("%w: %s", ErrNilClassifier, kind)
		}
		registered[kind] = clf
	}

	return &Engine{
		source:      source,
		classifiers: registered,
		logger:      logger.With("component", "classification_engine"),
	}, nil
}

// Models returns the model name registered for each job kind.
func (e *Engine) Models() map[domain.JobKind]string {
	names := make(map[domain.JobKind]string, len(e.classifiers))
	for kind, clf := range e.classifiers {
		names[kind] = clf.Name()
	}
	return names
}

// ClassifyBatch processes the images of job in listed order.
//
// A job that violates the job invariants fails with a validation JobError
// before any image is fetched. Otherwise the first resolution or inference
// failure aborts the remaining images and is returned as a JobError of the
// matching kind; no partial result is produced.
func (e *Engine) ClassifyBatch(ctx context.Context, job domain.Job) (*domain.BatchResult, error) {
	start := time.Now()
	logger := e.logger.With("job_id", job.ID, "job_type", job.Kind)

	if err := job.Validate(); err != nil {
		logger.WarnContext(ctx, "job failed validation", "error", err)
		return nil, err
	}

	clf, ok := e.classifiers[job.Kind]
	if !ok {
		return nil, domain.NewValidationError(job.ID, fmt.Errorf("%w: %s", ErrUnsupportedKind, job.Kind))
	}

	params := Params{TopK: job.TopK}
	if job.Kind.IsCustom() {
		params.Labels = job.CustomLabels
	}

	results := make([]domain.ImageResult, 0, len(job.Keys))
	for _, key := range job.Keys {
		result, err := e.classifyImage(ctx, job, clf, params, key)
		if err != nil {
			logger.ErrorContext(ctx, "batch classification failed",
				"s3_key", key,
				"processed", len(results),
				"error", err)
			return nil, err
		}
		results = append(results, result)
	}

	summary := domain.Summarize(results)
	batch := &domain.BatchResult{
		Success:          true,
		JobID:            job.ID,
		JobType:          job.Kind,
		ModelUsed:        clf.Name(),
		TotalImages:      len(results),
		ProcessingTimeMS: domain.Milliseconds(time.Since(start)),
		GroupedByLabel:   domain.GroupByLabel(results),
		DetailedResults:  results,
		Summary:          summary,
	}

	logger.InfoContext(ctx, "job complete",
		"model", batch.ModelUsed,
		"images", summary.Total,
		"classified", summary.Classified,
		"unknown", summary.Unknown,
		"threshold", job.ConfidenceThreshold,
		"processing_time_ms", batch.ProcessingTimeMS)

	return batch, nil
}

// classifyImage resolves, classifies and thresholds a single image. The
// recorded latency covers exactly those three steps.
func (e *Engine) classifyImage(
	ctx context.Context,
	job domain.Job,
	clf Classifier,
	params Params,
	key string,
) (domain.ImageResult, error) {
	start := time.Now()

	img, err := e.source.Resolve(ctx, job.Bucket, key)
	if err != nil {
		return domain.ImageResult{}, domain.NewResolutionError(job.ID, key, err)
	}

	predictions, err := clf.Predict(ctx, img, params)
	if err != nil {
		return domain.ImageResult{}, domain.NewInferenceError(job.ID, key, err)
	}
	if len(predictions) == 0 {
		return domain.ImageResult{}, domain.NewInferenceError(job.ID, key, domain.ErrNoPredictions)
	}
	if len(predictions) > job.TopK {
		predictions = predictions[:job.TopK]
	}

	top := predictions[0]
	label, reason := ResolveTopLabel(top, job.ConfidenceThreshold)

	filename := domain.FilenameFromKey(key)
	if reason != "" {
		e.logger.DebugContext(ctx, "image marked unknown due to low confidence",
			"job_id", job.ID,
			"filename", filename,
			"original_label", top.Label,
			"score", top.Score)
	}

	return domain.ImageResult{
		Filename:         filename,
		Key:              key,
		TopPrediction:    label,
		TopConfidence:    top.Score,
		AllPredictions:   predictions,
		ProcessingTimeMS: domain.Milliseconds(time.Since(start)),
		Reason:           reason,
	}, nil
}
