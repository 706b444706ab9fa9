package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avatarforge/api/internal/config"
)

// CaptionerClient generates post captions and hashtags through an
// OpenAI-compatible chat completion API.
type CaptionerClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// ChatMessage represents a message in the chat completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest represents the request body for chat completion
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse represents the response from chat completion
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Caption is the parsed captioner output.
type Caption struct {
	Text     string
	Hashtags []string
}

// CostPerCaption is the flat LLM price per caption generation.
const CostPerCaption = 0.003

const captionSystemPrompt = `You write short, engaging social media captions for a content creator.
Reply with the caption on the first line, then one line starting with "Tags:" listing 3-6 hashtags without the # symbol, comma separated.`

// NewCaptionerClient creates a new captioner client.
func NewCaptionerClient(cfg *config.CaptionerConfig) *CaptionerClient {
	return &CaptionerClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

// GenerateCaption produces a caption and hashtags for one content item.
func (c *CaptionerClient) GenerateCaption(ctx context.Context, platform, category, prompt string) (*Caption, error) {
	user := fmt.Sprintf("Platform: %s\nContent category: %s\nScene: %s", platform, category, prompt)

	raw, err := c.chatCompletion(ctx, captionSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	return parseCaption(raw), nil
}

// chatCompletion sends a chat completion request.
func (c *CaptionerClient) chatCompletion(ctx context.Context, system, user string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.8,
		MaxTokens:   256,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("captioner.request", resp.StatusCode, string(respBody))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// parseCaption splits the model reply into caption text and hashtags.
func parseCaption(raw string) *Caption {
	out := &Caption{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Tags:"); ok {
			for _, tag := range strings.Split(rest, ",") {
				tag = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
				if tag != "" {
					out.Hashtags = append(out.Hashtags, tag)
				}
			}
			continue
		}
		if out.Text == "" {
			out.Text = line
		}
	}
	return out
}

// IsConfigured returns true if the client has valid configuration
func (c *CaptionerClient) IsConfigured() bool {
	return c.apiKey != ""
}
