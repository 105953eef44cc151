// Package tfidf is the offline embedder. It vectorises pattern and component text with
// TF-IDF over a fixed corpus, so it needs no API and gives stable vectors between runs.
package tfidf

import (
	"context"
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"uitestgen/internal/domain"
)

var (
	// slots are template placeholders such as {component_id}; every template carries them.
	slotRe  = regexp.MustCompile(`\{[a-z_]+\}`)
	identRe = regexp.MustCompile(`[a-z][a-z0-9_]*`)
)

// Selenium and pytest boilerplate that every template shares.
var stopwords = toSet(
	"def", "assert", "driver", "import", "from", "self", "none", "true", "false",
	"try", "finally", "except", "return", "print", "pass", "not",
	"webdriver", "chrome", "quit", "find_element", "find_elements", "by", "get", "test",
	"a", "an", "the", "and", "or", "if", "then", "else", "for", "to", "of", "in", "on", "at",
	"with", "as", "is", "are", "be", "it", "this", "that", "into", "after", "before", "should",
)

// Option tunes an Embedder.
type Option func(*Embedder)

// WithBoost multiplies the weight of terms by factor. Terms are matched as whole
// identifiers, so "click_interaction" boosts that strategy and not every "click".
func WithBoost(factor float64, terms ...string) Option {
	return func(e *Embedder) {
		for _, t := range terms {
			e.boost[strings.ToLower(t)] = factor
		}
	}
}

// Embedder is a TF-IDF vectoriser with sublinear term frequency.
type Embedder struct {
	boost map[string]float64

	mu    sync.RWMutex
	vocab map[string]int
	idf   []float64
}

// NewEmbedder returns an unprepared Embedder.
func NewEmbedder(opts ...Option) *Embedder {
	e := &Embedder{boost: map[string]float64{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fixes the vocabulary and IDF values from corpus. Preparing again replaces
// them, so vectors from earlier calls are no longer comparable.
func (e *Embedder) Prepare(_ context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := map[string]int{}
	for _, doc := range corpus {
		for term := range counts(doc) {
			df[term]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no terms")
	}
	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(corpus))
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		vocab[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
		if b, ok := e.boost[t]; ok {
			idf[i] *= b
		}
	}

	e.mu.Lock()
	e.vocab, e.idf = vocab, idf
	e.mu.Unlock()
	return nil
}

func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.idf)
}

// Embed returns the unit-length TF-IDF vector of text. Text without known terms gives
// the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.vocab == nil {
		return nil, domain.ErrNotPrepared
	}
	vec := make([]float64, len(e.idf))
	var norm float64
	for term, c := range counts(text) {
		i, ok := e.vocab[term]
		if !ok {
			continue
		}
		vec[i] = (1 + math.Log(float64(c))) * e.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

// counts tokenises text into term counts. A snake_case identifier counts as itself and
// as each of its parts; slot markers are dropped.
func counts(text string) map[string]int {
	text = slotRe.ReplaceAllString(strings.ToLower(text), " ")
	out := map[string]int{}
	for _, ident := range identRe.FindAllString(text, -1) {
		ident = strings.Trim(ident, "_")
		if ident == "" {
			continue
		}
		if _, stop := stopwords[ident]; stop {
			continue
		}
		out[ident]++
		if !strings.Contains(ident, "_") {
			continue
		}
		for _, part := range strings.Split(ident, "_") {
			if len(part) < 2 {
				continue
			}
			if _, stop := stopwords[part]; !stop {
				out[part]++
			}
		}
	}
	return out
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
