// Package gemini adapts Google's Gemini models to the llm.Chatter
// interface through google.golang.org/genai.
package gemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/yiyinbot/yiyin/pkg/errors"
	"github.com/yiyinbot/yiyin/pkg/integrations/llm"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.5-flash"

// Client is a Gemini chat backend.
type Client struct {
	models *genai.Models
	model  string
}

// NewClient creates a Gemini client. model may be empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeNotConfigured, "GEMINI_API_KEY is not set")
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create genai client")
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: gc.Models, model: model}, nil
}

// Chat implements llm.Chatter. System messages become the system
// instruction; assistant turns are sent with the model role.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	model := c.model
	if opts.Model != "" && strings.HasPrefix(opts.Model, "gemini") {
		model = opts.Model
	}

	system, contents := Contents(messages)
	cfg := &genai.GenerateContentConfig{SystemInstruction: system}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(opts.TopP))
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}

	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "gemini request failed")
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New(errors.ErrCodeUpstream, "gemini returned no text")
	}
	return text, nil
}

// Contents splits a conversation into a system instruction (nil when
// there is none) and genai turns.
func Contents(messages []llm.Message) (*genai.Content, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

var _ llm.Chatter = (*Client)(nil)
