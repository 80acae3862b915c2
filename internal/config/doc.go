// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional config file. It provides
// type-safe access to the queue, worker, inference and storage settings the
// classification worker needs, keeping those details out of business logic.
package config
