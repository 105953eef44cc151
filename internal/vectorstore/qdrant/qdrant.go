package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/resilience"
	"uitestgen/internal/vectorstore"
)

// pointNamespace derives stable point ids; Qdrant only accepts unsigned integers or UUIDs.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("uitestgen/patterns"))

// Storage is a minimal REST client to Qdrant.
// It uses cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
	executor   *resilience.Executor
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		executor:   resilience.NewExecutor("qdrant:"+cfg.Collection, resilience.DefaultPolicy(), cfg.Logger),
	}
}

// PointID maps a pattern id to its Qdrant point id.
func PointID(patternID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(patternID)).String()
}

// Init creates the collection, or checks that an existing one has the same vector size.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return domain.ErrInvalidDimension
	}
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &info, http.StatusNotFound)
	if err != nil {
		return err
	}
	if status != http.StatusNotFound {
		if size := info.Result.Config.Params.Vectors.Size; size != dimension {
			return fmt.Errorf("%w: collection %s has size %d, want %d", domain.ErrDimensionMismatch, s.collection, size, dimension)
		}
		s.dimension = dimension
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if _, err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, patterns []domain.Pattern, vectors [][]float64) error {
	if len(patterns) != len(vectors) {
		return domain.ErrLengthMismatch
	}
	points := make([]map[string]any, len(patterns))
	for i, p := range patterns {
		if s.dimension > 0 && len(vectors[i]) != s.dimension {
			return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, len(vectors[i]), s.dimension)
		}
		points[i] = map[string]any{
			"id":      PointID(p.ID),
			"vector":  vectors[i],
			"payload": toPayload(p),
		}
	}
	body := map[string]any{"points": points}
	_, err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
	return err
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.Match, error) {
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.Match{Pattern: r.Payload.pattern(), Score: r.Score})
	}
	return results, nil
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Clear drops the collection. A missing collection is not an error.
func (s *Storage) Clear(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil, http.StatusNotFound)
	if err == nil {
		s.dimension = 0
	}
	return err
}

// Health probes the server root.
func (s *Storage) Health(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, s.url+"/", nil, nil)
	return err
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// do sends a JSON request through the retry executor and decodes a 2xx reply into out.
// Statuses listed in allow are returned without error and without decoding.
func (s *Storage) do(ctx context.Context, method, url string, body, out any, allow ...int) (int, error) {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return 0, err
		}
	}
	var status int
	err := s.executor.Run(ctx, func(ctx context.Context) error {
		var rd io.Reader
		if data != nil {
			rd = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("api-key", s.apiKey)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		for _, a := range allow {
			if status == a {
				return nil
			}
		}
		if err := resilience.CheckResponse(resp, "qdrant "+method+" "+url); err != nil {
			return err
		}
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	})
	return status, err
}

type payload struct {
	PatternID     string   `json:"pattern_id"`
	ComponentType string   `json:"component_type"`
	Description   string   `json:"description"`
	Template      string   `json:"template"`
	Tags          []string `json:"tags"`
	Complexity    string   `json:"complexity"`
	Source        string   `json:"source"`
	AIGenerated   bool     `json:"ai_generated"`
}

func toPayload(p domain.Pattern) payload {
	return payload{
		PatternID:     p.ID,
		ComponentType: p.ComponentType,
		Description:   p.Description,
		Template:      p.Template,
		Tags:          p.Tags,
		Complexity:    p.Complexity,
		Source:        p.Source,
		AIGenerated:   p.AIGenerated,
	}
}

func (p payload) pattern() domain.Pattern {
	return domain.Pattern{
		ID:            p.PatternID,
		ComponentType: p.ComponentType,
		Description:   p.Description,
		Template:      p.Template,
		Tags:          p.Tags,
		Complexity:    p.Complexity,
		Source:        p.Source,
		AIGenerated:   p.AIGenerated,
	}
}

var _ vectorstore.Storage = (*Storage)(nil)
