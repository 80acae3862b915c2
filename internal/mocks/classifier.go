package mocks

import (
	"context"
	"image"
	"sync"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

// PredictCall records the arguments of one Predict invocation.
type PredictCall struct {
	Key    string
	Params classify.Params
}

// MockClassifier implements classify.Classifier.
type MockClassifier struct {
	NameValue string

	// PredictFn overrides the default behavior when set.
	PredictFn func(ctx context.Context, img image.Image, params classify.Params) ([]domain.Prediction, error)

	// ByKey maps an image key (see KeyedImage) to the predictions returned for it.
	ByKey map[string][]domain.Prediction

	// Predictions is returned for images not found in ByKey.
	Predictions []domain.Prediction
	Err         error

	mu    sync.Mutex
	calls []PredictCall
}

var _ classify.Classifier = (*MockClassifier)(nil)

// Name implements classify.Classifier.
func (m *MockClassifier) Name() string {
	if m.NameValue == "" {
		return "MockModel"
	}
	return m.NameValue
}

// Predict implements classify.Classifier.
func (m *MockClassifier) Predict(
	ctx context.Context,
	img image.Image,
	params classify.Params,
) ([]domain.Prediction, error) {
	key := KeyOf(img)

	m.mu.Lock()
	m.calls = append(m.calls, PredictCall{Key: key, Params: params})
	m.mu.Unlock()

	if m.PredictFn != nil {
		return m.PredictFn(ctx, img, params)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if preds, ok := m.ByKey[key]; ok {
		return clonePredictions(preds), nil
	}
	return clonePredictions(m.Predictions), nil
}

// Calls returns a copy of the recorded Predict invocations.
func (m *MockClassifier) Calls() []PredictCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PredictCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Predict invocations.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func clonePredictions(preds []domain.Prediction) []domain.Prediction {
	if preds == nil {
		return nil
	}
	out := make([]domain.Prediction, len(preds))
	copy(out, preds)
	return out
}
