// Package gemini runs chat completions against Gemini through google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"uitestgen/internal/domain"
	"uitestgen/internal/llm"
)

// Chat is a Gemini chat model.
type Chat struct {
	client *genai.Client
	model  string
}

// Config configures the Gemini chat model.
type Config struct {
	APIKeyEnv string
	Model     string
}

// NewChat creates a Gemini chat model. The API key is read from cfg.APIKeyEnv.
func NewChat(ctx context.Context, cfg Config) (*Chat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Chat{client: client, model: cfg.Model}, nil
}

// Name returns the model name.
func (c *Chat) Name() string { return c.model }

// Complete sends the conversation; system messages become the system instruction.
func (c *Chat) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	system, contents := split(messages)
	if len(contents) == 0 {
		return "", domain.ErrEmptyPrompt
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyCompletion
	}
	return text, nil
}

// split separates system text from the user and model turns.
func split(messages []llm.Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
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
	return strings.Join(system, "\n\n"), contents
}

var _ llm.ChatModel = (*Chat)(nil)
