// Package inference provides classifiers backed by an HTTP model-serving
// service: a closed-vocabulary variant that ranks the model's own label
// space, and an open-vocabulary variant that scores caller-supplied labels.
//
// Images are resized to the model input size and sent JPEG-encoded.
package inference
