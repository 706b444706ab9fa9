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

	"github.com/avatarforge/api/internal/model"
)

// FanhubClient publishes paywalled content to the FanHub creator platform.
// FanHub carries the restricted tier, so no content gating happens here.
type FanhubClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewFanhubClient creates a new FanHub publisher.
func NewFanhubClient() *FanhubClient {
	return &FanhubClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    "https://api.fanhub.io/v1",
	}
}

// Publish creates one media post on the creator's feed.
func (c *FanhubClient) Publish(ctx context.Context, account *model.SocialAccount, mediaURL, caption string, hashtags []string) (*model.PublishResult, error) {
	payload := map[string]interface{}{
		"media_url": mediaURL,
		"caption":   caption,
		"tags":      hashtags,
	}

	var result struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}

	if err := c.post(ctx, "/posts", account.AccessToken, payload, &result); err != nil {
		return nil, err
	}

	log.Printf("[FanHub API] published post %s for account %s", result.ID, account.Username)

	return &model.PublishResult{
		PostID:      result.ID,
		URL:         result.URL,
		PublishedAt: time.Now().UTC(),
	}, nil
}

// CheckHealth validates the token and reads the creator profile.
func (c *FanhubClient) CheckHealth(ctx context.Context, account *model.SocialAccount) (*model.AccountHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "fanhub.health", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &model.AccountHealth{Healthy: false, Score: 0, Issues: []string{fmt.Sprintf("status %d", resp.StatusCode)}}, nil
	}

	var info struct {
		SubscriberCount int  `json:"subscriberCount"`
		Suspended       bool `json:"suspended"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if info.Suspended {
		return &model.AccountHealth{Healthy: false, Score: 0, Issues: []string{"account suspended"}}, nil
	}

	score := 70 // token valid and not suspended
	switch {
	case info.SubscriberCount > 500:
		score += 30
	case info.SubscriberCount > 50:
		score += 20
	default:
		score += 10
	}
	if score > 100 {
		score = 100
	}

	return &model.AccountHealth{Healthy: true, Score: score}, nil
}

// post sends an authorized JSON POST.
func (c *FanhubClient) post(ctx context.Context, endpoint, token string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	log.Printf("[FanHub API] → POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: "fanhub.request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[FanHub API] ← %d POST %s — %s", resp.StatusCode, endpoint, string(respBody))
		return classifyStatus("fanhub.request", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
