package domain

import "fmt"

// Status is the terminal outcome of one job attempt.
type Status string

// Possible status values
const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StatusMessage reports the outcome of a job attempt on the status channel.
// Exactly one of Result and Error is set.
type StatusMessage struct {
	JobID  string       `json:"job_id"`
	Status Status       `json:"status"`
	Result *BatchResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// NewCompletedStatus builds the status message for a successful attempt.
func NewCompletedStatus(result *BatchResult) StatusMessage {
	return StatusMessage{
		JobID:  result.JobID,
		Status: StatusCompleted,
		Result: result,
	}
}

// NewFailedStatus builds the status message for a failed attempt. Attempts
// that are themselves retries are annotated with the retry count.
func NewFailedStatus(jobID string, retryCount int, err error) StatusMessage {
	msg := err.Error()
	if retryCount >= 1 {
		msg = fmt.Sprintf("Retry %d failed: %s", retryCount, msg)
	}
	return StatusMessage{
		JobID:  jobID,
		Status: StatusFailed,
		Error:  msg,
	}
}
