package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the worker.
var (
	// ErrValidation is returned when a job fails validation.
	// It is wrapped with a more specific message.
	ErrValidation = errors.New("validation failed")

	// ErrMalformedMessage is returned when a queue message body cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrMissingCustomLabels is returned when a custom classification job has no labels.
	ErrMissingCustomLabels = errors.New("custom_labels is required for custom_classification")

	// ErrUnknownJobKind is returned for an unrecognised job_type value.
	ErrUnknownJobKind = errors.New("unknown job type")

	// ErrNoPredictions is returned when a classifier produces an empty ranking.
	ErrNoPredictions = errors.New("classifier returned no predictions")

	// ErrStatusNotFound is returned when no status has been recorded for a job.
	ErrStatusNotFound = errors.New("job status not found")
)

// ErrorKind classifies a job failure.
type ErrorKind string

// Job failure kinds.
const (
	// KindValidation marks a malformed job. Terminal, never retried.
	KindValidation ErrorKind = "validation"

	// KindResolution marks an image that could not be fetched or decoded.
	KindResolution ErrorKind = "resolution"

	// KindInference marks a classifier failure.
	KindInference ErrorKind = "inference"

	// KindTransport marks a queue or status channel failure.
	KindTransport ErrorKind = "transport"
)

// JobError is the single error type returned by the engine. Kind tells a
// validation failure apart from a processing failure.
type JobError struct {
	Kind  ErrorKind
	JobID string
	// Key is the image key being processed, empty for job-level failures.
	Key string
	Err error
}

// Error implements the error interface with a message suitable for requesters.
func (e *JobError) Error() string {
	switch e.Kind {
	case KindResolution:
		return fmt.Sprintf("failed to resolve image %s: %v", e.Key, e.Err)
	case KindInference:
		return fmt.Sprintf("classification failed for %s: %v", e.Key, e.Err)
	case KindTransport:
		return fmt.Sprintf("transport error: %v", e.Err)
	default:
		return e.Err.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *JobError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps err as a validation failure of the given job.
func NewValidationError(jobID string, err error) *JobError {
	if !errors.Is(err, ErrValidation) {
		err = fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return &JobError{Kind: KindValidation, JobID: jobID, Err: err}
}

// NewResolutionError reports that the image at key could not be obtained.
func NewResolutionError(jobID, key string, err error) *JobError {
	return &JobError{Kind: KindResolution, JobID: jobID, Key: key, Err: err}
}

// NewInferenceError reports that the classifier failed on the image at key.
func NewInferenceError(jobID, key string, err error) *JobError {
	return &JobError{Kind: KindInference, JobID: jobID, Key: key, Err: err}
}

// NewTransportError reports a queue or status channel failure.
func NewTransportError(jobID string, err error) *JobError {
	return &JobError{Kind: KindTransport, JobID: jobID, Err: err}
}

// KindOf returns the ErrorKind carried by err, or an empty kind when err is
// not a JobError.
func KindOf(err error) ErrorKind {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}
	return ""
}

// IsValidation reports whether err is a job validation failure.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}
