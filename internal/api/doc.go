// Package api exposes the worker's HTTP surface: a synchronous classify
// endpoint that bypasses the queue, a health report and job status lookups
// backed by the status store. It translates HTTP concerns to engine calls
// and never changes the semantics of a job.
package api
