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

// TikTokClient publishes media through the TikTok content posting API.
type TikTokClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewTikTokClient creates a new TikTok publisher.
func NewTikTokClient() *TikTokClient {
	return &TikTokClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    "https://open.tiktokapis.com/v2",
	}
}

// Publish pushes one media URL as a post.
func (c *TikTokClient) Publish(ctx context.Context, account *model.SocialAccount, mediaURL, caption string, hashtags []string) (*model.PublishResult, error) {
	payload := map[string]interface{}{
		"post_info": map[string]interface{}{
			"title":         appendHashtags(caption, hashtags),
			"privacy_level": "PUBLIC_TO_EVERYONE",
		},
		"source_info": map[string]interface{}{
			"source":    "PULL_FROM_URL",
			"photo_urls": []string{mediaURL},
		},
	}

	var result struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := c.post(ctx, "/post/publish/content/init/", account.AccessToken, payload, &result); err != nil {
		return nil, err
	}

	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, &FatalError{Op: "tiktok.publish", Err: fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message)}
	}

	log.Printf("[TikTok API] published %s for account %s", result.Data.PublishID, account.Username)

	return &model.PublishResult{
		PostID:      result.Data.PublishID,
		URL:         fmt.Sprintf("https://www.tiktok.com/@%s", account.Username),
		PublishedAt: time.Now().UTC(),
	}, nil
}

// CheckHealth validates the token via the user info endpoint.
func (c *TikTokClient) CheckHealth(ctx context.Context, account *model.SocialAccount) (*model.AccountHealth, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/info/?fields=open_id,follower_count,video_count", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "tiktok.health", Err: err}
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
			User struct {
				FollowerCount int `json:"follower_count"`
				VideoCount    int `json:"video_count"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	score := 50
	switch {
	case info.Data.User.FollowerCount > 1000:
		score += 30
	case info.Data.User.FollowerCount > 100:
		score += 20
	default:
		score += 10
	}
	if info.Data.User.VideoCount > 0 {
		score += 20
	}

	return &model.AccountHealth{Healthy: score >= 70, Score: score}, nil
}

// post sends an authorized JSON POST.
func (c *TikTokClient) post(ctx context.Context, endpoint, token string, body interface{}, result interface{}) error {
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

	log.Printf("[TikTok API] → POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: "tiktok.request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[TikTok API] ← %d POST %s — %s", resp.StatusCode, endpoint, string(respBody))
		return classifyStatus("tiktok.request", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
