// Package classify implements the batch classification engine. It turns a
// validated Job into a BatchResult by resolving each image through an
// ImageSource, dispatching it to the Classifier registered for the job kind,
// applying the confidence threshold, and aggregating the per-image results.
//
// The engine is stateless per invocation and safe for concurrent use as long
// as the ImageSource and Classifier implementations are.
package classify
