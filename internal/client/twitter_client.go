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

// TwitterClient publishes posts through the X API v2.
type TwitterClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewTwitterClient creates a new Twitter publisher.
func NewTwitterClient() *TwitterClient {
	return &TwitterClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://api.twitter.com/2",
	}
}

// Publish posts the caption with the media URL appended. The v2 API takes
// pre-uploaded media ids; linking the hosted image keeps the flow single-call.
func (c *TwitterClient) Publish(ctx context.Context, account *model.SocialAccount, mediaURL, caption string, hashtags []string) (*model.PublishResult, error) {
	text := appendHashtags(caption, hashtags)
	if mediaURL != "" {
		if text != "" {
			text += "\n"
		}
		text += mediaURL
	}

	payload := map[string]interface{}{
		"text": text,
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	if err := c.post(ctx, "/tweets", account.AccessToken, payload, &result); err != nil {
		return nil, err
	}

	log.Printf("[Twitter API] published tweet %s for account %s", result.Data.ID, account.Username)

	return &model.PublishResult{
		PostID:      result.Data.ID,
		URL:         fmt.Sprintf("https://twitter.com/%s/status/%s", account.Username, result.Data.ID),
		PublishedAt: time.Now().UTC(),
	}, nil
}

// CheckHealth validates the token via the authenticated user endpoint.
func (c *TwitterClient) CheckHealth(ctx context.Context, account *model.SocialAccount) (*model.AccountHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me?user.fields=public_metrics", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "twitter.health", Err: err}
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
		Data struct {
			PublicMetrics struct {
				FollowersCount int `json:"followers_count"`
				TweetCount     int `json:"tweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	score := 50
	switch {
	case info.Data.PublicMetrics.FollowersCount > 1000:
		score += 30
	case info.Data.PublicMetrics.FollowersCount > 100:
		score += 20
	default:
		score += 10
	}
	if info.Data.PublicMetrics.TweetCount > 0 {
		score += 20
	}

	return &model.AccountHealth{Healthy: score >= 70, Score: score}, nil
}

// post sends an authorized JSON POST.
func (c *TwitterClient) post(ctx context.Context, endpoint, token string, body interface{}, result interface{}) error {
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

	log.Printf("[Twitter API] → POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: "twitter.request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Twitter API] ← %d POST %s — %s", resp.StatusCode, endpoint, string(respBody))
		return classifyStatus("twitter.request", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
