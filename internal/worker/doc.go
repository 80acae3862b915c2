// Package worker drives the classification engine from an at-least-once
// message queue.
//
// A Worker repeatedly receives a bounded batch of messages, processes every
// message of the batch concurrently up to a configured limit, reports one
// terminal status per message and acknowledges the message whatever the
// outcome. A batch is always drained before the next receive. Redelivery is
// left entirely to the queue's visibility timeout; the worker never retries
// a job itself.
//
// Shutdown is cooperative: Stop prevents new batches from starting and waits
// for the in-flight batch to finish.
package worker
