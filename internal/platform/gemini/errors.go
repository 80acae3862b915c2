package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the classifier cannot be configured.
	ErrInvalidConfig = errors.New("invalid gemini configuration")

	// ErrInvalidResponse is returned when the response cannot be interpreted.
	ErrInvalidResponse = errors.New("invalid response from gemini")

	// ErrContentBlocked is returned when the request is blocked by safety filters.
	ErrContentBlocked = errors.New("content blocked by safety filters")

	// ErrTransientFailure is returned when retries are exhausted.
	ErrTransientFailure = errors.New("transient gemini failure")

	// ErrNoLabels is returned when no candidate labels are supplied.
	ErrNoLabels = errors.New("candidate labels cannot be empty")
)
