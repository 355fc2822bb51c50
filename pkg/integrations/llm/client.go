// Package llm calls OpenAI-compatible chat completion endpoints.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations"
)

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options are sampling parameters for one completion.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// DefaultOptions mirrors the settings the role-play plugin was tuned with.
func DefaultOptions() Options {
	return Options{
		Model:       "claude-haiku-4-5-20251001",
		Temperature: 0.8,
		MaxTokens:   256,
		TopP:        0.9,
	}
}

// Chatter produces an assistant reply for a conversation.
type Chatter interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// DefaultBaseURL is the relay the bot uses by default.
const DefaultBaseURL = "https://yunwu.ai/v1"

// Client is an OpenAI-compatible chat client.
type Client struct {
	*integrations.Client
	baseURL string
	apiKey  string
}

// NewClient creates a client for baseURL (default [DefaultBaseURL]).
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		Client:  integrations.NewClient(nil, "", 0, nil),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
	if timeout > 0 {
		c.HTTPClient().Timeout = timeout
	}
	return c
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
	Stream      bool      `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Chat implements [Chatter].
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	if c.apiKey == "" {
		return "", errors.New(errors.ErrCodeNotConfigured, "LLM API key is not configured")
	}
	if opts.Model == "" {
		opts.Model = DefaultOptions().Model
	}

	req := completionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		TopP:        opts.TopP,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp completionResponse
	if err := c.PostJSON(ctx, c.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "chat completion failed")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New(errors.ErrCodeUpstream, "chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Chatter = (*Client)(nil)
