package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avatarforge/api/internal/model"
)

// InstagramClient publishes media through the Instagram Graph API.
type InstagramClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewInstagramClient creates a new Instagram publisher.
func NewInstagramClient() *InstagramClient {
	return &InstagramClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    "https://graph.instagram.com",
	}
}

// Publish creates a media container and publishes it, returning the
// platform post id and permalink.
func (c *InstagramClient) Publish(ctx context.Context, account *model.SocialAccount, mediaURL, caption string, hashtags []string) (*model.PublishResult, error) {
	fullCaption := appendHashtags(caption, hashtags)

	containerID, err := c.createContainer(ctx, account.AccessToken, mediaURL, fullCaption)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("creation_id", containerID)
	params.Set("access_token", account.AccessToken)

	var published struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/me/media_publish", params, &published); err != nil {
		return nil, err
	}

	log.Printf("[Instagram API] published media %s for account %s", published.ID, account.Username)

	return &model.PublishResult{
		PostID:      published.ID,
		URL:         fmt.Sprintf("https://www.instagram.com/p/%s/", published.ID),
		PublishedAt: time.Now().UTC(),
	}, nil
}

// createContainer uploads the media URL into a publish container.
func (c *InstagramClient) createContainer(ctx context.Context, token, mediaURL, caption string) (string, error) {
	params := url.Values{}
	params.Set("image_url", mediaURL)
	params.Set("caption", caption)
	params.Set("access_token", token)

	var container struct {
		ID string `json:"id"`
	}
	if err := c.postForm(ctx, "/me/media", params, &container); err != nil {
		return "", err
	}
	return container.ID, nil
}

// CheckHealth probes the account and derives a 0-100 score. Token validity
// alone is worth 50; follower and media signals add the rest.
func (c *InstagramClient) CheckHealth(ctx context.Context, account *model.SocialAccount) (*model.AccountHealth, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,username,media_count,followers_count&access_token=%s", c.baseURL, account.AccessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransientError{Op: "instagram.health", Err: err}
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
		ID             string `json:"id"`
		Username       string `json:"username"`
		MediaCount     int    `json:"media_count"`
		FollowersCount int    `json:"followers_count"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	score := 50 // token is valid
	switch {
	case info.FollowersCount > 1000:
		score += 30
	case info.FollowersCount > 100:
		score += 20
	default:
		score += 10
	}
	if info.MediaCount > 0 {
		score += 20
	}

	return &model.AccountHealth{Healthy: score >= 70, Score: score}, nil
}

// postForm sends a form-encoded POST and decodes the JSON reply.
func (c *InstagramClient) postForm(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Printf("[Instagram API] → POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Op: "instagram.request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[Instagram API] ← %d POST %s — %s", resp.StatusCode, endpoint, string(body))
		return classifyStatus("instagram.request", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// appendHashtags joins hashtags onto a caption as a trailing block.
func appendHashtags(caption string, hashtags []string) string {
	if len(hashtags) == 0 {
		return caption
	}
	tags := make([]string, 0, len(hashtags))
	for _, tag := range hashtags {
		tags = append(tags, "#"+strings.TrimPrefix(tag, "#"))
	}
	block := strings.Join(tags, " ")
	if caption == "" {
		return block
	}
	return caption + "\n\n" + block
}
