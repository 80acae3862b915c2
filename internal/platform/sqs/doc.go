// Package sqs adapts Amazon SQS to the worker's Queue and Reporter
// interfaces using aws-sdk-go.
package sqs
