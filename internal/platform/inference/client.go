package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnsuccessful is returned when the service answers 200 with success=false.
var ErrUnsuccessful = errors.New("inference service reported failure")

// ClassifyRequest asks the service to rank its own label space.
type ClassifyRequest struct {
	RequestID string `json:"request_id,omitempty"`
	Model     string `json:"model"`
	Image     []byte `json:"image"`
	TopK      int    `json:"top_k"`
}

// ScoreRequest asks the service to score each text prompt against the image.
type ScoreRequest struct {
	RequestID string   `json:"request_id,omitempty"`
	Model     string   `json:"model"`
	Image     []byte   `json:"image"`
	Texts     []string `json:"texts"`
}

// LabelScore is one ranked label returned by the service.
type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ClassifyResponse is the response to a ClassifyRequest.
type ClassifyResponse struct {
	Success      bool         `json:"success"`
	Predictions  []LabelScore `json:"predictions"`
	ModelVersion string       `json:"model_version"`
	RequestID    string       `json:"request_id,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// ScoreResponse carries one probability per requested text, in request order.
type ScoreResponse struct {
	Success      bool      `json:"success"`
	Scores       []float64 `json:"scores"`
	ModelVersion string    `json:"model_version"`
	RequestID    string    `json:"request_id,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string   `json:"status"`
	ModelsLoaded []string `json:"models_loaded"`
}

// Client is an HTTP client for the model-serving service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new inference service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify ranks the model's label space for one image.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResponse, error) {
	var result ClassifyResponse
	if err := c.post(ctx, "/v1/classify", req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, result.Error)
	}
	return &result, nil
}

// Score computes image-text similarity probabilities.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (*ScoreResponse, error) {
	var result ScoreResponse
	if err := c.post(ctx, "/v1/score", req, &result); err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", ErrUnsuccessful, result.Error)
	}
	return &result, nil
}

// Health checks the inference service health
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference service returned status %d", resp.StatusCode)
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil || len(respBody) == 0 {
			return fmt.Errorf("inference service returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("inference service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
