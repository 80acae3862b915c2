// Package mocks provides hand-written test doubles for the collaborator
// interfaces of the classification worker.
//
// Each mock exposes function fields for overriding behavior per test plus
// mutex-guarded call tracking, so the same mock can be shared by the
// concurrently running goroutines of the queue worker.
//
// Usage:
//
//	clf := &mocks.MockClassifier{
//	    NameValue: "MobileNetV2",
//	    PredictFn: func(ctx context.Context, img image.Image, p classify.Params) ([]domain.Prediction, error) {
//	        return []domain.Prediction{{Label: "cat", Score: 0.9}}, nil
//	    },
//	}
package mocks
