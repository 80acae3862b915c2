package gemini

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/config"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

type fakeGenerator struct {
	mu        sync.Mutex
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
	lastModel string
	lastParts []*genai.Part
	lastCfg   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	f.lastModel = model
	f.lastCfg = cfg
	if len(contents) > 0 {
		f.lastParts = contents[0].Parts
	}

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func newTestClassifier(t *testing.T, gen ContentGenerator, maxRetries int) *Classifier {
	t.Helper()
	clf, err := NewWithGenerator(gen, setupTestLogger(), config.GeminiConfig{
		ModelName:  "gemini-2.0-flash",
		MaxRetries: maxRetries,
	})
	require.NoError(t, err)
	clf.retryDelay = time.Millisecond
	return clf
}

func testImage() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})
	return img
}

func TestNewWithGenerator(t *testing.T) {
	_, err := NewWithGenerator(nil, setupTestLogger(), config.GeminiConfig{ModelName: "m"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewWithGenerator(&fakeGenerator{}, setupTestLogger(), config.GeminiConfig{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewWithGenerator(&fakeGenerator{}, nil, config.GeminiConfig{ModelName: "m"})
	assert.Error(t, err)

	clf, err := NewWithGenerator(&fakeGenerator{}, setupTestLogger(), config.GeminiConfig{ModelName: "m", MaxRetries: -1})
	require.NoError(t, err)
	assert.Equal(t, 3, clf.maxRetries)
	assert.Equal(t, "m", clf.Name())
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), setupTestLogger(), config.GeminiConfig{ModelName: "m"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClassifier_Predict(t *testing.T) {
	gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{
		textResponse(`{"scores":[{"label":"Dog","score":0.2},{"label":"cat","score":0.9},{"label":"car","score":1.4}]}`),
	}}
	clf := newTestClassifier(t, gen, 0)

	preds, err := clf.Predict(context.Background(), testImage(), classify.Params{
		TopK:   3,
		Labels: []string{"cat", "dog", "bird", "car"},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.Prediction{
		{Label: "car", Score: 1},
		{Label: "cat", Score: 0.9},
		{Label: "dog", Score: 0.2},
	}, preds)

	assert.Equal(t, "gemini-2.0-flash", gen.lastModel)
	require.Len(t, gen.lastParts, 2)
	require.NotNil(t, gen.lastParts[0].InlineData)
	assert.Equal(t, "image/jpeg", gen.lastParts[0].InlineData.MIMEType)
	assert.Contains(t, gen.lastParts[1].Text, "- bird")
	assert.Equal(t, "application/json", gen.lastCfg.ResponseMIMEType)
}

func TestClassifier_Predict_NoLabels(t *testing.T) {
	gen := &fakeGenerator{}
	clf := newTestClassifier(t, gen, 0)

	_, err := clf.Predict(context.Background(), testImage(), classify.Params{TopK: 5})
	assert.ErrorIs(t, err, ErrNoLabels)
	assert.Equal(t, 0, gen.calls)
}

func TestClassifier_Predict_RetriesTransientErrors(t *testing.T) {
	gen := &fakeGenerator{
		errs: []error{errors.New("503 unavailable"), errors.New("429 resource exhausted")},
		responses: []*genai.GenerateContentResponse{
			nil, nil,
			textResponse("```json\n{\"scores\":[{\"label\":\"cat\",\"score\":0.8}]}\n```"),
		},
	}
	clf := newTestClassifier(t, gen, 3)

	preds, err := clf.Predict(context.Background(), testImage(), classify.Params{TopK: 1, Labels: []string{"cat"}})
	require.NoError(t, err)
	assert.Equal(t, []domain.Prediction{{Label: "cat", Score: 0.8}}, preds)
	assert.Equal(t, 3, gen.calls)
}

func TestClassifier_Predict_ExhaustsRetries(t *testing.T) {
	gen := &fakeGenerator{errs: []error{
		errors.New("unavailable"), errors.New("unavailable"), errors.New("unavailable"),
	}}
	clf := newTestClassifier(t, gen, 2)

	_, err := clf.Predict(context.Background(), testImage(), classify.Params{TopK: 1, Labels: []string{"cat"}})
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.Equal(t, 3, gen.calls)
}

func TestClassifier_Predict_PermanentErrors(t *testing.T) {
	testCases := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		wantErr error
	}{
		{
			name: "blocked",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonSafety,
			}}},
			wantErr: ErrContentBlocked,
		},
		{
			name:    "no candidates",
			resp:    &genai.GenerateContentResponse{},
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "not json",
			resp:    textResponse("I think it is a cat."),
			wantErr: ErrInvalidResponse,
		},
		{
			name:    "no scores",
			resp:    textResponse(`{"scores":[]}`),
			wantErr: ErrInvalidResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen := &fakeGenerator{responses: []*genai.GenerateContentResponse{tc.resp}}
			clf := newTestClassifier(t, gen, 3)

			_, err := clf.Predict(context.Background(), testImage(), classify.Params{TopK: 1, Labels: []string{"cat"}})
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, 1, gen.calls, "permanent errors are not retried")
		})
	}
}

func TestClassifier_Predict_ContextCancelledDuringBackoff(t *testing.T) {
	gen := &fakeGenerator{errs: []error{errors.New("unavailable"), errors.New("unavailable")}}
	clf := newTestClassifier(t, gen, 5)
	clf.retryDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := clf.Predict(ctx, testImage(), classify.Params{TopK: 1, Labels: []string{"cat"}})
	assert.ErrorIs(t, err, ErrTransientFailure)
	assert.Equal(t, 1, gen.calls)
}

func TestMatchScores(t *testing.T) {
	scores := matchScores(
		[]string{"Cat", " dog ", "fish"},
		[]LabelScore{{Label: "cat", Score: 0.7}, {Label: "DOG", Score: -0.2}, {Label: "cat", Score: 0.1}},
	)
	assert.Equal(t, []float64{0.7, 0, 0}, scores)
}

func TestEncodeImage_FitsLargeImages(t *testing.T) {
	data, err := encodeImage(image.NewNRGBA(image.Rect(0, 0, 2000, 1000)))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
