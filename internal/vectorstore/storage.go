package vectorstore

import (
	"context"
	"math"

	"uitestgen/internal/domain"
)

// Storage persists pattern vectors and supports similarity search.
// All vectors in one store share the dimension fixed by Init.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	// Upsert replaces patterns that share an ID.
	Upsert(ctx context.Context, patterns []domain.Pattern, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]domain.Match, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Health(ctx context.Context) error
}

// Cosine returns the cosine similarity of a and b, zero when either has no magnitude.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
