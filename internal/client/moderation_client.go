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
	"github.com/avatarforge/api/internal/model"
)

// ModerationClient classifies prompts through the OpenAI moderation API and
// maps category scores onto access tiers. Implements the pipeline's
// Moderator capability.
type ModerationClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// moderationRequest is the request body for the moderations endpoint.
type moderationRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

// moderationResponse is the moderations endpoint reply.
type moderationResponse struct {
	Results []struct {
		Flagged        bool               `json:"flagged"`
		CategoryScores map[string]float64 `json:"category_scores"`
	} `json:"results"`
}

// CostPerCheck is the flat per-classification price.
const CostPerCheck = 0.0001

// Scored moderation categories.
const (
	categorySexual     = "sexual"
	categoryViolence   = "violence"
	categoryHate       = "hate"
	categorySelfHarm   = "self-harm"
	categoryHarassment = "harassment"
)

// rejectionThresholds: any score above its threshold rejects the item
// outright. Sexual is high because artistic content scores there.
var rejectionThresholds = map[string]float64{
	categorySexual:     0.90,
	categoryViolence:   0.70,
	categoryHate:       0.50,
	categorySelfHarm:   0.50,
	categoryHarassment: 0.60,
}

// tierThresholds: a tier accepts the item when all three scores are at or
// below its bounds. Checked from safest to most restricted.
var tierThresholds = []struct {
	tier     model.Tier
	rating   model.SafetyRating
	sexual   float64
	violence float64
	hate     float64
}{
	{model.TierSafe, model.RatingSafe, 0.20, 0.10, 0.05},
	{model.TierPremium, model.RatingSuggestive, 0.60, 0.30, 0.10},
	{model.TierRestricted, model.RatingBorderline, 0.90, 0.50, 0.20},
}

// NewModerationClient creates a new moderation client.
func NewModerationClient(cfg *config.ModerationConfig) *ModerationClient {
	return &ModerationClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// Classify scores the prompt text and returns a verdict. The asset itself is
// not inspected; the generation prompt acts as its proxy (dedicated image
// moderation would slot in here).
func (c *ModerationClient) Classify(ctx context.Context, text, assetRef string) (*model.ModerationVerdict, error) {
	if c.apiKey == "" {
		log.Println("[Moderation API] no API key configured, passing item as safe")
		return &model.ModerationVerdict{Rating: model.RatingSafe, Tier: model.TierSafe}, nil
	}

	scores, err := c.score(ctx, text)
	if err != nil {
		return nil, err
	}

	return classifyScores(scores), nil
}

// score calls the moderations endpoint and returns category scores.
func (c *ModerationClient) score(ctx context.Context, text string) (map[string]float64, error) {
	bodyBytes, err := json.Marshal(moderationRequest{Input: text, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/moderations", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "moderation.request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("moderation.request", resp.StatusCode, string(respBody))
	}

	var modResp moderationResponse
	if err := json.Unmarshal(respBody, &modResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(modResp.Results) == 0 {
		return nil, fmt.Errorf("no results in response")
	}

	raw := modResp.Results[0].CategoryScores
	return map[string]float64{
		categorySexual:     raw[categorySexual],
		categoryViolence:   raw[categoryViolence],
		categoryHate:       raw[categoryHate],
		categorySelfHarm:   raw[categorySelfHarm],
		categoryHarassment: raw[categoryHarassment],
	}, nil
}

// classifyScores maps category scores to a verdict.
func classifyScores(scores map[string]float64) *model.ModerationVerdict {
	for category, threshold := range rejectionThresholds {
		if scores[category] > threshold {
			return &model.ModerationVerdict{
				Rating:   model.RatingRejected,
				Rejected: true,
				Scores:   scores,
				Reason:   fmt.Sprintf("%s score %.2f exceeds threshold %.2f", category, scores[category], threshold),
			}
		}
	}

	for _, t := range tierThresholds {
		if scores[categorySexual] <= t.sexual &&
			scores[categoryViolence] <= t.violence &&
			scores[categoryHate] <= t.hate {
			return &model.ModerationVerdict{Rating: t.rating, Tier: t.tier, Scores: scores}
		}
	}

	// Close to rejection but under every hard threshold
	return &model.ModerationVerdict{Rating: model.RatingBorderline, Tier: model.TierRestricted, Scores: scores}
}

// IsConfigured returns true if the client has valid configuration
func (c *ModerationClient) IsConfigured() bool {
	return c.apiKey != ""
}
