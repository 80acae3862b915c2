// Package redis records job statuses in Redis so requesters can poll for
// the outcome of a job without consuming the status queue.
//
// The latest status of a job is stored under status:<job_id> and every
// reported attempt is appended to status:<job_id>:history. Both keys expire
// after the configured TTL.
package redis
