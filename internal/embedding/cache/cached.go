// Package cache wraps an embedder with an in-process LRU and an optional SQLite store.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"uitestgen/internal/embedding"
)

// Cached is an Embedder decorator keyed by model name and the sha256 of the text.
type Cached struct {
	inner  embedding.Embedder
	lru    *lru.Cache[string, []float64]
	store  *Store
	logger *zap.Logger

	mu        sync.RWMutex
	dimension int
	hits      int
	misses    int
}

// New wraps inner. store may be nil for a memory-only cache.
func New(inner embedding.Embedder, size int, store *Store, logger *zap.Logger) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	l, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{inner: inner, lru: l, store: store, logger: logger}, nil
}

// Name returns the wrapped embedder name.
func (c *Cached) Name() string { return c.inner.Name() }

// Prepare forwards to the wrapped embedder.
func (c *Cached) Prepare(ctx context.Context, corpus []string) error {
	return c.inner.Prepare(ctx, corpus)
}

// Dimension returns the wrapped dimension, or the one learned from cached vectors.
func (c *Cached) Dimension() int {
	if d := c.inner.Dimension(); d > 0 {
		return d
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Embed serves from the LRU, then the store, then the wrapped embedder.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	hash := Key(text)
	key := c.inner.Name() + ":" + hash

	if v, ok := c.lru.Get(key); ok {
		c.record(v, true)
		return v, nil
	}
	if c.store != nil {
		v, ok, err := c.store.Get(ctx, c.inner.Name(), hash)
		if err != nil {
			c.logger.Warn("embedding cache read failed", zap.Error(err))
		} else if ok {
			c.lru.Add(key, v)
			c.record(v, true)
			return v, nil
		}
	}

	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, v)
	if c.store != nil {
		if err := c.store.Put(ctx, c.inner.Name(), hash, v); err != nil {
			c.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	c.record(v, false)
	return v, nil
}

func (c *Cached) record(v []float64, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = len(v)
	}
	if hit {
		c.hits++
	} else {
		c.misses++
	}
}

// Stats returns cache hits and misses so far.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Key hashes text for use as a cache key.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

var _ embedding.Embedder = (*Cached)(nil)
