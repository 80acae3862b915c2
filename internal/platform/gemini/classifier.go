package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/disintegration/imaging"
	"google.golang.org/genai"

	"github.com/phrazzld/classifier-worker/internal/classify"
	"github.com/phrazzld/classifier-worker/internal/config"
	"github.com/phrazzld/classifier-worker/internal/domain"
)

// maxImageSide bounds the longest side of the image sent to the model.
const maxImageSide = 768

// defaultRetryDelay is the base of the exponential retry backoff.
const defaultRetryDelay = time.Second

const promptText = `Classify the attached image.
Score how well each candidate label describes the image, from 0 (not at all) to 1 (perfectly).
Candidate labels:
{{range .Labels}}- {{.}}
{{end}}
Respond only with JSON of the form {"scores":[{"label":"<label>","score":<number>}]}, listing every candidate label exactly once and spelled exactly as given.`

// ContentGenerator is the part of the genai client the classifier uses.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Classifier implements classify.Classifier using Gemini.
type Classifier struct {
	logger         *slog.Logger
	models         ContentGenerator
	model          string
	maxRetries     int
	retryDelay     time.Duration
	promptTemplate *template.Template

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ classify.Classifier = (*Classifier)(nil)

// New creates a Classifier talking to the Gemini API with cfg.APIKey.
func New(ctx context.Context, logger *slog.Logger, cfg config.GeminiConfig) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return NewWithGenerator(client.Models, logger, cfg)
}

// NewWithGenerator creates a Classifier on top of an existing generator.
func NewWithGenerator(models ContentGenerator, logger *slog.Logger, cfg config.GeminiConfig) (*Classifier, error) {
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", ErrInvalidConfig)
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		maxRetries = 3
	}

	tmpl, err := template.New("classify").Parse(promptText)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}

	return &Classifier{
		logger:         logger.With("component", "gemini_classifier", "model", cfg.ModelName),
		models:         models,
		model:          cfg.ModelName,
		maxRetries:     maxRetries,
		retryDelay:     defaultRetryDelay,
		promptTemplate: tmpl,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Name implements classify.Classifier.
func (c *Classifier) Name() string {
	return c.model
}

// Predict implements classify.Classifier.
func (c *Classifier) Predict(
	ctx context.Context,
	img image.Image,
	params classify.Params,
) ([]domain.Prediction, error) {
	if len(params.Labels) == 0 {
		return nil, ErrNoLabels
	}

	prompt, err := c.createPrompt(params.Labels)
	if err != nil {
		return nil, err
	}

	data, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromBytes(data, "image/jpeg"),
			genai.NewPartFromText(prompt),
		},
	}}

	response, err := c.callWithRetry(ctx, contents)
	if err != nil {
		return nil, err
	}

	scores := matchScores(params.Labels, response.Scores)
	return classify.RankLabels(params.Labels, scores, params.TopK), nil
}

// createPrompt renders the prompt template for labels.
func (c *Classifier) createPrompt(labels []string) (string, error) {
	var buf bytes.Buffer
	if err := c.promptTemplate.Execute(&buf, promptData{Labels: labels}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}

// encodeImage shrinks img to fit maxImageSide and encodes it as JPEG.
func encodeImage(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Classifier) generationConfig() *genai.GenerateContentConfig {
	temperature := float32(0)
	return &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"scores": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"label": {Type: genai.TypeString},
							"score": {Type: genai.TypeNumber},
						},
						Required: []string{"label", "score"},
					},
				},
			},
			Required: []string{"scores"},
		},
	}
}

// callWithRetry calls the API up to maxRetries+1 times. Transient errors
// are retried with exponential backoff and jitter; blocked content and
// unparseable responses are returned immediately.
func (c *Classifier) callWithRetry(ctx context.Context, contents []*genai.Content) (*ResponseSchema, error) {
	cfg := c.generationConfig()

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		c.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attemptNum,
			"max_attempts", c.maxRetries+1)

		resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
		if err == nil {
			var parsed *ResponseSchema
			parsed, err = parseResponse(resp)
			if err == nil {
				return parsed, nil
			}
		}

		if errors.Is(err, ErrContentBlocked) || errors.Is(err, ErrInvalidResponse) {
			c.logger.WarnContext(ctx, "permanent Gemini error, not retrying",
				"attempt", attemptNum,
				"error", err)
			return nil, err
		}

		c.logger.ErrorContext(ctx, "Gemini API call failed",
			"attempt", attemptNum,
			"error", err)

		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, c.maxRetries, err)
		}

		delay := c.backoff(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns retryDelay * 2^attempt scaled by a jitter factor in [0.5, 1).
func (c *Classifier) backoff(attempt int) time.Duration {
	c.rngMu.Lock()
	jitter := 0.5 + c.rng.Float64()*0.5
	c.rngMu.Unlock()
	return time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)) * jitter)
}

// parseResponse extracts the JSON score document from a model response.
func parseResponse(resp *genai.GenerateContentResponse) (*ResponseSchema, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates in response", ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, ErrContentBlocked
	}
	if candidate.Content == nil {
		return nil, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	var parsed ResponseSchema
	if err := json.Unmarshal([]byte(stripCodeFence(text.String())), &parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrInvalidResponse, err)
	}
	if len(parsed.Scores) == 0 {
		return nil, fmt.Errorf("%w: no scores in response", ErrInvalidResponse)
	}
	return &parsed, nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// occasionally add even in JSON mode.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// matchScores aligns the returned scores with the requested labels.
// Matching ignores case and surrounding space; labels the model omitted
// score 0 and scores are clamped to [0, 1].
func matchScores(labels []string, returned []LabelScore) []float64 {
	byLabel := make(map[string]float64, len(returned))
	for _, ls := range returned {
		key := strings.ToLower(strings.TrimSpace(ls.Label))
		if _, seen := byLabel[key]; !seen {
			byLabel[key] = math.Max(0, math.Min(1, ls.Score))
		}
	}

	scores := make([]float64, len(labels))
	for i, label := range labels {
		scores[i] = byLabel[strings.ToLower(strings.TrimSpace(label))]
	}
	return scores
}
