package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists embeddings in SQLite so repeated runs skip the embedding API.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the cache database at path.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	const ddl = `
	CREATE TABLE IF NOT EXISTS embedding_cache (
		model TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		vector TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (model, content_hash)
	);`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedding_cache: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the cached vector, or ok=false on a miss.
func (s *Store) Get(ctx context.Context, model, hash string) ([]float64, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embedding_cache WHERE model = ? AND content_hash = ?`, model, hash).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", hash, err)
	}
	return vec, true, nil
}

// Put stores or replaces a vector.
func (s *Store) Put(ctx context.Context, model, hash string, vec []float64) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO embedding_cache (model, content_hash, vector, created_at) VALUES (?, ?, ?, ?)`,
		model, hash, string(raw), time.Now().Unix())
	return err
}

// Count returns the number of cached vectors for model.
func (s *Store) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embedding_cache WHERE model = ?`, model).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
