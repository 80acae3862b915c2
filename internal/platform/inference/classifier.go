package inference

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

// promptTemplate turns a candidate label into the text scored against the image.
const promptTemplate = "a photo of %s"

// Common errors
var (
	ErrNoLabels       = errors.New("open-vocabulary classification requires candidate labels")
	ErrScoreMismatch  = errors.New("service returned a different number of scores than labels")
	ErrNilClient      = errors.New("inference client cannot be nil")
	ErrEmptyModelName = errors.New("model name cannot be empty")
)

// ClosedVocabulary classifies against the label space of a pre-trained model.
type ClosedVocabulary struct {
	client    *Client
	model     string
	inputSize int
}

var _ classify.Classifier = (*ClosedVocabulary)(nil)

// NewClosedVocabulary creates a classifier for model. Images are resized to
// inputSize before they are sent.
func NewClosedVocabulary(client *Client, model string, inputSize int) (*ClosedVocabulary, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if model == "" {
		return nil, ErrEmptyModelName
	}
	return &ClosedVocabulary{client: client, model: model, inputSize: inputSize}, nil
}

// Name implements classify.Classifier.
func (c *ClosedVocabulary) Name() string {
	return c.model
}

// Predict implements classify.Classifier. Custom labels are ignored.
func (c *ClosedVocabulary) Predict(
	ctx context.Context,
	img image.Image,
	params classify.Params,
) ([]domain.Prediction, error) {
	data, err := EncodeForModel(img, c.inputSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Classify(ctx, ClassifyRequest{
		RequestID: uuid.NewString(),
		Model:     c.model,
		Image:     data,
		TopK:      params.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.model, err)
	}

	labels := make([]string, len(resp.Predictions))
	scores := make([]float64, len(resp.Predictions))
	for i, p := range resp.Predictions {
		labels[i] = p.Label
		scores[i] = p.Score
	}
	return classify.RankLabels(labels, scores, params.TopK), nil
}

// Ready reports whether the service can be reached.
func (c *ClosedVocabulary) Ready(ctx context.Context) error {
	_, err := c.client.Health(ctx)
	return err
}

// OpenVocabulary scores the image against caller-supplied labels.
type OpenVocabulary struct {
	client    *Client
	model     string
	inputSize int
}

var _ classify.Classifier = (*OpenVocabulary)(nil)

// NewOpenVocabulary creates a classifier for model. Images are resized to
// inputSize before they are sent.
func NewOpenVocabulary(client *Client, model string, inputSize int) (*OpenVocabulary, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if model == "" {
		return nil, ErrEmptyModelName
	}
	return &OpenVocabulary{client: client, model: model, inputSize: inputSize}, nil
}

// Name implements classify.Classifier.
func (c *OpenVocabulary) Name() string {
	return c.model
}

// Predict implements classify.Classifier. Each label is scored as the
// prompt "a photo of <label>"; the predictions carry the bare label.
func (c *OpenVocabulary) Predict(
	ctx context.Context,
	img image.Image,
	params classify.Params,
) ([]domain.Prediction, error) {
	if len(params.Labels) == 0 {
		return nil, ErrNoLabels
	}

	data, err := EncodeForModel(img, c.inputSize)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Score(ctx, ScoreRequest{
		RequestID: uuid.NewString(),
		Model:     c.model,
		Image:     data,
		Texts:     Prompts(params.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.model, err)
	}
	if len(resp.Scores) != len(params.Labels) {
		return nil, fmt.Errorf("%s: got %d scores for %d labels: %w",
			c.model, len(resp.Scores), len(params.Labels), ErrScoreMismatch)
	}

	return classify.RankLabels(params.Labels, resp.Scores, params.TopK), nil
}

// Ready reports whether the service can be reached.
func (c *OpenVocabulary) Ready(ctx context.Context) error {
	_, err := c.client.Health(ctx)
	return err
}

// Prompts renders the text prompt of every label.
func Prompts(labels []string) []string {
	prompts := make([]string, len(labels))
	for i, label := range labels {
		prompts[i] = fmt.Sprintf(promptTemplate, label)
	}
	return prompts
}
