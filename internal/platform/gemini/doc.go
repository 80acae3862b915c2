// Package gemini provides an open-vocabulary classifier backed by Google's
// Gemini API.
//
// The image and the candidate labels are sent in a single multimodal
// request. The model is asked for a JSON document scoring every candidate
// label between 0 and 1, which is then ranked like any other
// open-vocabulary result.
//
// Transient API errors are retried with exponential backoff and jitter.
// Blocked content and malformed responses fail immediately.
package gemini
