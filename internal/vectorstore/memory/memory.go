package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"uitestgen/internal/domain"
	"uitestgen/internal/vectorstore"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	patterns  []domain.Pattern
	index     map[string]int
}

func NewStorage() *Storage { return &Storage{index: make(map[string]int)} }

// Init fixes the dimension. Re-initialising with the same dimension keeps the data.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.ErrInvalidDimension
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == dimension {
		return nil
	}
	if len(s.vectors) > 0 {
		return fmt.Errorf("%w: store holds %d-d vectors, got %d", domain.ErrDimensionMismatch, s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(_ context.Context, patterns []domain.Pattern, vectors [][]float64) error {
	if len(patterns) != len(vectors) {
		return domain.ErrLengthMismatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return domain.ErrInvalidDimension
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(v), s.dimension)
		}
	}
	for i, p := range patterns {
		if j, ok := s.index[p.ID]; ok {
			s.patterns[j] = p
			s.vectors[j] = vectors[i]
			continue
		}
		s.index[p.ID] = len(s.patterns)
		s.patterns = append(s.patterns, p)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 5
	}
	if len(s.vectors) > 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	matches := make([]domain.Match, len(s.vectors))
	for i := range s.vectors {
		matches[i] = domain.Match{Pattern: s.patterns[i], Score: vectorstore.Cosine(s.vectors[i], vector)}
	}
	// insertion order breaks ties
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > len(matches) {
		topK = len(matches)
	}
	return matches[:topK], nil
}

func (s *Storage) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns), nil
}

// Clear drops every pattern and the fixed dimension.
func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = 0
	s.vectors = nil
	s.patterns = nil
	s.index = make(map[string]int)
	return nil
}

func (s *Storage) Health(context.Context) error { return nil }

var _ vectorstore.Storage = (*Storage)(nil)
