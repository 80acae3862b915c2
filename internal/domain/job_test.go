package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validJob() Job {
	return Job{
		ID:                  "job-1",
		Kind:                JobKindStandard,
		Bucket:              "images",
		Keys:                []string{"input/a.jpg", "input/b.jpg"},
		TopK:                3,
		ConfidenceThreshold: 0.6,
	}
}

func TestParseJobKind(t *testing.T) {
	testCases := []struct {
		input   string
		want    JobKind
		wantErr bool
	}{
		{"image_classification", JobKindStandard, false},
		{"standard_classification", JobKindStandard, false},
		{"custom_classification", JobKindCustom, false},
		{"object_detection", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			kind, err := ParseJobKind(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrUnknownJobKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, kind)
		})
	}
}

func TestJob_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(j *Job)
		wantErr  bool
		contains string
	}{
		{name: "valid standard job", mutate: func(j *Job) {}},
		{
			name: "valid custom job",
			mutate: func(j *Job) {
				j.Kind = JobKindCustom
				j.CustomLabels = []string{"cat", "dog"}
			},
		},
		{
			name:     "custom job without labels",
			mutate:   func(j *Job) { j.Kind = JobKindCustom },
			wantErr:  true,
			contains: "custom_labels is required",
		},
		{
			name: "custom job with empty label list",
			mutate: func(j *Job) {
				j.Kind = JobKindCustom
				j.CustomLabels = []string{}
			},
			wantErr:  true,
			contains: "custom_labels is required",
		},
		{
			name:     "missing job id",
			mutate:   func(j *Job) { j.ID = "" },
			wantErr:  true,
			contains: "job_id",
		},
		{
			name:     "no keys",
			mutate:   func(j *Job) { j.Keys = nil },
			wantErr:  true,
			contains: "s3_keys",
		},
		{
			name:     "blank key",
			mutate:   func(j *Job) { j.Keys = []string{"a.jpg", ""} },
			wantErr:  true,
			contains: "s3_keys",
		},
		{
			name:     "top_k too small",
			mutate:   func(j *Job) { j.TopK = 0 },
			wantErr:  true,
			contains: "top_k",
		},
		{
			name:     "top_k too large",
			mutate:   func(j *Job) { j.TopK = 11 },
			wantErr:  true,
			contains: "top_k",
		},
		{
			name:     "threshold above one",
			mutate:   func(j *Job) { j.ConfidenceThreshold = 1.5 },
			wantErr:  true,
			contains: "confidence_threshold",
		},
		{
			name:   "threshold bounds are inclusive",
			mutate: func(j *Job) { j.ConfidenceThreshold = 1.0 },
		},
		{
			name:   "zero threshold is valid",
			mutate: func(j *Job) { j.ConfidenceThreshold = 0 },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job := validJob()
			tc.mutate(&job)

			err := job.Validate()

			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsValidation(err), "expected validation kind, got %v", KindOf(err))
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestParseJob_AppliesDefaults(t *testing.T) {
	body := []byte(`{"job_id":"j1","job_type":"image_classification","s3_bucket":"b","s3_keys":["a.jpg"]}`)

	job, err := ParseJob(body)

	require.NoError(t, err)
	assert.Equal(t, "j1", job.ID)
	assert.Equal(t, JobKindStandard, job.Kind)
	assert.Equal(t, DefaultTopK, job.TopK)
	assert.Equal(t, DefaultConfidenceThreshold, job.ConfidenceThreshold)
	assert.Equal(t, 0, job.RetryCount)
}

func TestParseJob_ExplicitValues(t *testing.T) {
	body := []byte(`{
		"job_id": "j2",
		"job_type": "custom_classification",
		"s3_bucket": "b",
		"s3_keys": ["x/a.jpg", "x/b.jpg"],
		"custom_labels": ["cat", "dog"],
		"top_k": 2,
		"confidence_threshold": 0,
		"retry_count": 3
	}`)

	job, err := ParseJob(body)

	require.NoError(t, err)
	assert.Equal(t, JobKindCustom, job.Kind)
	assert.Equal(t, []string{"cat", "dog"}, job.CustomLabels)
	assert.Equal(t, 2, job.TopK)
	assert.Equal(t, 0.0, job.ConfidenceThreshold, "explicit zero threshold must not be replaced by the default")
	assert.Equal(t, 3, job.RetryCount)
}

func TestParseJob_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		wantJobID string
		wantIs    error
	}{
		{
			name:   "not json",
			body:   `this is not json`,
			wantIs: ErrMalformedMessage,
		},
		{
			name:      "unknown job type",
			body:      `{"job_id":"j3","job_type":"detect","s3_bucket":"b","s3_keys":["a.jpg"]}`,
			wantJobID: "j3",
			wantIs:    ErrUnknownJobKind,
		},
		{
			name:      "custom without labels",
			body:      `{"job_id":"j4","job_type":"custom_classification","s3_bucket":"b","s3_keys":["a.jpg"]}`,
			wantJobID: "j4",
			wantIs:    ErrMissingCustomLabels,
		},
		{
			name:      "wrong field type",
			body:      `{"job_id":"j5","job_type":"image_classification","s3_keys":"a.jpg"}`,
			wantJobID: "",
			wantIs:    ErrMalformedMessage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			job, err := ParseJob([]byte(tc.body))

			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.ErrorIs(t, err, tc.wantIs)
			assert.Equal(t, tc.wantJobID, job.ID)
		})
	}
}

func TestJobError_Messages(t *testing.T) {
	cause := errors.New("boom")

	assert.Equal(t, "failed to resolve image in/a.jpg: boom",
		NewResolutionError("j", "in/a.jpg", cause).Error())
	assert.Equal(t, "classification failed for in/a.jpg: boom",
		NewInferenceError("j", "in/a.jpg", cause).Error())
	assert.Equal(t, "transport error: boom", NewTransportError("j", cause).Error())
	assert.Equal(t, "validation failed: boom", NewValidationError("j", cause).Error())

	assert.ErrorIs(t, NewInferenceError("j", "k", cause), cause)
	assert.Equal(t, KindInference, KindOf(NewInferenceError("j", "k", cause)))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}
