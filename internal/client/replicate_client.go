package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/avatarforge/api/internal/config"
)

// ReplicateClient runs image generation predictions against the Replicate
// API. It implements the pipeline's Generator capability.
type ReplicateClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// PredictionRequest is the body for creating a prediction.
type PredictionRequest struct {
	Version string                 `json:"version,omitempty"`
	Input   map[string]interface{} `json:"input"`
}

// Prediction represents a Replicate prediction in any state.
type Prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output,omitempty"`
	Error  string   `json:"error,omitempty"`
	Metrics struct {
		PredictTime float64 `json:"predict_time"`
	} `json:"metrics"`
}

// GeneratedAsset is the result handed to the pipeline.
type GeneratedAsset struct {
	AssetRef string  // provider-hosted URL, pre-storage
	CostUSD  float64
	Duration float64 // seconds
}

// costPerImage is the flat per-prediction price used for batch cost
// aggregation.
const costPerImage = 0.01

// NewReplicateClient creates a new Replicate API client.
func NewReplicateClient(cfg *config.ReplicateConfig) *ReplicateClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout == 0 {
		timeout = 120 * time.Second
	}
	return &ReplicateClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}
}

// Generate runs one prediction to completion and returns the asset.
// Transient provider failures come back as *TransientError so the caller
// can decide whether the slot is worth retrying in a later batch.
func (c *ReplicateClient) Generate(ctx context.Context, prompt string, params map[string]interface{}) (*GeneratedAsset, error) {
	input := map[string]interface{}{
		"prompt":       prompt,
		"num_outputs":  1,
		"output_format": "jpg",
	}
	for k, v := range params {
		input[k] = v
	}

	start := time.Now()

	pred, err := c.createPrediction(ctx, &PredictionRequest{Input: input})
	if err != nil {
		return nil, err
	}

	result, err := c.pollPrediction(ctx, pred.ID, 2*time.Second, 5*time.Minute)
	if err != nil {
		return nil, err
	}

	if len(result.Output) == 0 {
		return nil, &TransientError{Op: "replicate.generate", Err: fmt.Errorf("prediction %s produced no output", result.ID)}
	}

	duration := result.Metrics.PredictTime
	if duration == 0 {
		duration = time.Since(start).Seconds()
	}

	return &GeneratedAsset{
		AssetRef: result.Output[0],
		CostUSD:  costPerImage,
		Duration: duration,
	}, nil
}

// createPrediction starts a prediction for the configured model.
func (c *ReplicateClient) createPrediction(ctx context.Context, req *PredictionRequest) (*Prediction, error) {
	endpoint := fmt.Sprintf("/models/%s/predictions", c.model)
	var pred Prediction
	if err := c.post(ctx, endpoint, req, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// getPrediction fetches the current state of a prediction.
func (c *ReplicateClient) getPrediction(ctx context.Context, id string) (*Prediction, error) {
	var pred Prediction
	if err := c.get(ctx, "/predictions/"+id, &pred); err != nil {
		return nil, err
	}
	return &pred, nil
}

// pollPrediction polls until the prediction reaches a terminal state.
func (c *ReplicateClient) pollPrediction(ctx context.Context, id string, interval, maxWait time.Duration) (*Prediction, error) {
	deadline := time.Now().Add(maxWait)
	attempt := 0

	for time.Now().Before(deadline) {
		attempt++
		pred, err := c.getPrediction(ctx, id)
		if err != nil {
			log.Printf("[Replicate API] Poll #%d (prediction=%s) — error: %v", attempt, id, err)
			return nil, err
		}

		log.Printf("[Replicate API] Poll #%d (prediction=%s) — status: %s", attempt, id, pred.Status)

		switch pred.Status {
		case "succeeded":
			return pred, nil
		case "failed", "canceled":
			return nil, &TransientError{Op: "replicate.generate", Err: fmt.Errorf("prediction %s: %s", id, pred.Error)}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
			continue
		}
	}

	return nil, &TransientError{Op: "replicate.generate", Err: fmt.Errorf("prediction %s timed out after %v", id, maxWait)}
}

// post sends a POST request with JSON body
func (c *ReplicateClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// get sends a GET request and parses JSON response
func (c *ReplicateClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

// doRequest executes an HTTP request and parses the response
func (c *ReplicateClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[Replicate API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Replicate API] ✗ %s %s — request failed: %v", req.Method, req.URL.String(), err)
		return &TransientError{Op: "replicate.request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Replicate API] ← %d %s %s — %s", resp.StatusCode, req.Method, req.URL.String(), string(respBody))
		return classifyStatus("replicate.request", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ReplicateClient) IsConfigured() bool {
	return c.apiKey != ""
}
