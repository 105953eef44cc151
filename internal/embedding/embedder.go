package embedding

import (
	"context"
	"fmt"
)

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(ctx context.Context, corpus []string) error
	// Dimension is zero until it is known; remote embedders learn it on the first call.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// EmbedAll embeds texts in order and stops at the first failure.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// IsZero reports whether v carries no signal, which happens when none of the query terms are known.
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
