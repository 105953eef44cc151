// Package openai talks to OpenAI-compatible chat completion endpoints (OpenAI, Mistral, Ollama).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/llm"
	"uitestgen/internal/resilience"
)

// Chat is an OpenAI-compatible chat completion client.
type Chat struct {
	baseURL  string
	apiKey   string
	model    string
	client   *http.Client
	executor *resilience.Executor
	logger   *zap.Logger
}

// Config configures the chat client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *zap.Logger
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewChat creates a chat client. The API key is read from cfg.APIKeyEnv.
func NewChat(cfg Config) (*Chat, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	policy := resilience.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxRetries = cfg.MaxRetries
	}
	return &Chat{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   key,
		model:    cfg.Model,
		client:   &http.Client{Timeout: cfg.Timeout},
		executor: resilience.NewExecutor("chat:"+cfg.Model, policy, cfg.Logger),
		logger:   cfg.Logger,
	}, nil
}

// Name returns the model name.
func (c *Chat) Name() string { return c.model }

// Complete sends the conversation and returns the first choice.
func (c *Chat) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if len(messages) == 0 {
		return "", domain.ErrEmptyPrompt
	}
	data, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var out chatResponse
	err = c.executor.Run(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := resilience.CheckResponse(resp, "chat completion"); err != nil {
			return err
		}
		out = chatResponse{}
		return json.NewDecoder(resp.Body).Decode(&out)
	})
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", domain.ErrEmptyCompletion
	}
	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int("prompt_tokens", out.Usage.PromptTokens),
		zap.Int("completion_tokens", out.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))
	return out.Choices[0].Message.Content, nil
}

var _ llm.ChatModel = (*Chat)(nil)
