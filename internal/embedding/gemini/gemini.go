package gemini

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"

	"uitestgen/internal/domain"
)

// Embedder generates embeddings with the Gemini API.
type Embedder struct {
	client *genai.Client
	model  string

	mu        sync.RWMutex
	dimension int
}

// Config configures the Gemini embedder.
type Config struct {
	APIKeyEnv string
	Model     string
}

// NewEmbedder creates a Gemini embedder. The API key is read from cfg.APIKeyEnv.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Embedder{client: client, model: cfg.Model}, nil
}

// Name returns the embedder identifier.
func (e *Embedder) Name() string { return "genai:" + e.model }

// Prepare is a no-op for remote embedding.
func (e *Embedder) Prepare(context.Context, []string) error { return nil }

// Dimension returns the learned vector size, zero before the first call.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// Embed generates an embedding for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, domain.ErrNoEmbedding
	}
	vec := ToFloat64(result.Embeddings[0].Values)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimension == 0 {
		e.dimension = len(vec)
	} else if len(vec) != e.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vec), e.dimension)
	}
	return vec, nil
}

// ToFloat64 widens a float32 vector.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
