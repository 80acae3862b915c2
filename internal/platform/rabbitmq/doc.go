// Package rabbitmq adapts a RabbitMQ broker to the worker's Queue and
// Reporter interfaces.
//
// RabbitMQ has no visibility timeout. A message fetched but never acked is
// redelivered when its channel closes, which gives the same at-least-once
// recovery the worker relies on with SQS.
package rabbitmq
