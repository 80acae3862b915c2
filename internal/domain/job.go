package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// JobKind selects which classifier variant processes a job.
type JobKind string

// Supported job kinds, as they appear in the job_type field.
const (
	// JobKindStandard classifies against the closed, pre-trained label space.
	JobKindStandard JobKind = "image_classification"

	// JobKindCustom classifies against the caller-supplied custom labels.
	JobKindCustom JobKind = "custom_classification"
)

// standardKindAlias is accepted on the wire as a synonym of JobKindStandard.
const standardKindAlias = "standard_classification"

// Job parameter defaults applied when a message omits them.
const (
	DefaultTopK                = 5
	DefaultConfidenceThreshold = 0.5
)

// ParseJobKind converts a job_type value into a JobKind.
func ParseJobKind(s string) (JobKind, error) {
	switch strings.TrimSpace(s) {
	case string(JobKindStandard), standardKindAlias:
		return JobKindStandard, nil
	case string(JobKindCustom):
		return JobKindCustom, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownJobKind, s)
	}
}

// IsCustom reports whether the kind requires custom labels.
func (k JobKind) IsCustom() bool {
	return k == JobKindCustom
}

// Job is one classification request spanning one or more images.
type Job struct {
	ID                  string   `json:"job_id" validate:"required"`
	Kind                JobKind  `json:"job_type" validate:"required,oneof=image_classification custom_classification"`
	Bucket              string   `json:"s3_bucket" validate:"required"`
	Keys                []string `json:"s3_keys" validate:"required,min=1,dive,required"`
	CustomLabels        []string `json:"custom_labels,omitempty" validate:"omitempty,dive,required"`
	TopK                int      `json:"top_k" validate:"gte=1,lte=10"`
	ConfidenceThreshold float64  `json:"confidence_threshold" validate:"gte=0,lte=1"`

	// RetryCount is maintained by whoever re-enqueues the job. The worker only
	// reads and reports it.
	RetryCount int `json:"retry_count" validate:"gte=0"`
}

var (
	jobValidatorOnce sync.Once
	jobValidator     *validator.Validate
)

func getValidator() *validator.Validate {
	jobValidatorOnce.Do(func() {
		jobValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return jobValidator
}

// Validate checks the job invariants. Any violation is returned as a
// validation JobError so callers can tell it apart from processing failures.
func (j Job) Validate() error {
	if err := getValidator().Struct(j); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return NewValidationError(j.ID, describeFieldErrors(fieldErrs))
		}
		return NewValidationError(j.ID, err)
	}

	if j.Kind.IsCustom() && len(j.CustomLabels) == 0 {
		return NewValidationError(j.ID, ErrMissingCustomLabels)
	}

	return nil
}

// describeFieldErrors renders validator errors using the wire field names.
func describeFieldErrors(errs validator.ValidationErrors) error {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field, index, _ := strings.Cut(fe.StructField(), "[")
		name := wireFieldNames[field]
		if name == "" {
			name = fe.Field()
		} else if index != "" {
			name += "[" + index
		}
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", name, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", name, fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

var wireFieldNames = map[string]string{
	"ID":                  "job_id",
	"Kind":                "job_type",
	"Bucket":              "s3_bucket",
	"Keys":                "s3_keys",
	"CustomLabels":        "custom_labels",
	"TopK":                "top_k",
	"ConfidenceThreshold": "confidence_threshold",
	"RetryCount":          "retry_count",
}

// jobMessage is the inbound wire shape. Optional numeric fields are pointers
// so absent values can be told apart from explicit zeros.
type jobMessage struct {
	JobID               string   `json:"job_id"`
	JobType             string   `json:"job_type"`
	Bucket              string   `json:"s3_bucket"`
	Keys                []string `json:"s3_keys"`
	CustomLabels        []string `json:"custom_labels"`
	TopK                *int     `json:"top_k"`
	ConfidenceThreshold *float64 `json:"confidence_threshold"`
	RetryCount          *int     `json:"retry_count"`
}

// ParseJob decodes a queue message body into a validated Job, applying the
// defaults for absent optional fields.
//
// On failure the returned Job carries whatever was decoded (at least the job
// id when the body is valid JSON) so the failure can still be reported
// against the right job. The error is always a validation JobError.
func ParseJob(body []byte) (Job, error) {
	var msg jobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Job{}, NewValidationError("", fmt.Errorf("%w: %v", ErrMalformedMessage, err))
	}

	job := Job{
		ID:                  msg.JobID,
		Bucket:              msg.Bucket,
		Keys:                msg.Keys,
		CustomLabels:        msg.CustomLabels,
		TopK:                DefaultTopK,
		ConfidenceThreshold: DefaultConfidenceThreshold,
	}
	if msg.TopK != nil {
		job.TopK = *msg.TopK
	}
	if msg.ConfidenceThreshold != nil {
		job.ConfidenceThreshold = *msg.ConfidenceThreshold
	}
	if msg.RetryCount != nil {
		job.RetryCount = *msg.RetryCount
	}

	kind, err := ParseJobKind(msg.JobType)
	if err != nil {
		return job, NewValidationError(job.ID, err)
	}
	job.Kind = kind

	if err := job.Validate(); err != nil {
		return job, err
	}

	return job, nil
}
