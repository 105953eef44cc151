package service

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"

	"uitestgen/internal/domain"
	"uitestgen/internal/embedding"
	"uitestgen/internal/pattern"
	"uitestgen/internal/search"
)

// Query searches the stored patterns for free text. When the text embeds to a zero vector,
// or every stored score is zero, patterns are ranked by word overlap instead.
func (s *Service) Query(ctx context.Context, text string, topK int) ([]domain.Match, error) {
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if embedding.IsZero(vec) {
		return s.lexicalSearch(text, topK), nil
	}
	res, err := s.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	for _, r := range res {
		if r.Score > 1e-9 {
			return res, nil
		}
	}
	return s.lexicalSearch(text, topK), nil
}

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

func (s *Service) lexicalSearch(query string, topK int) []domain.Match {
	qset := toTokenSet(query)
	s.mu.RLock()
	out := make([]domain.Match, 0, len(s.known))
	for _, p := range s.known {
		out = append(out, domain.Match{Pattern: p, Score: overlapOchiai(qset, pattern.EmbeddingText(p))})
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Pattern.ID < out[j].Pattern.ID
	})
	if topK < len(out) {
		out = out[:topK]
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := wordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// overlapOchiai is |A∩B| / sqrt(|A||B|) over the distinct words of the query and text.
func overlapOchiai(qset map[string]struct{}, text string) float64 {
	seen := toTokenSet(text)
	if len(qset) == 0 || len(seen) == 0 {
		return 0
	}
	inter := 0
	for t := range seen {
		if _, ok := qset[t]; ok {
			inter++
		}
	}
	return float64(inter) / math.Sqrt(float64(len(qset))*float64(len(seen)))
}

// Status describes the pipeline's backends.
type Status struct {
	Embedder     string
	Dimension    int
	Generator    string
	Patterns     int
	StoreHealthy bool
	StoreError   string
	Search       *search.Health
}

// Status probes the store and, when configured, the external search API.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{
		Embedder:  s.embedder.Name(),
		Dimension: s.embedder.Dimension(),
		Generator: s.generator.Name(),
	}
	if err := s.store.Health(ctx); err != nil {
		st.StoreError = err.Error()
	} else {
		st.StoreHealthy = true
		if n, err := s.store.Count(ctx); err == nil {
			st.Patterns = n
		}
	}
	if s.search != nil {
		h := s.search.Health(ctx)
		st.Search = &h
	}
	return st
}

// Usage returns how often each stored pattern was discovered for a component.
func (s *Service) Usage() map[string]int {
	return s.discovery.Usage()
}
