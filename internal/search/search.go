// Package search finds test patterns published outside the local store through a
// Linkup-style HTTP API.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"uitestgen/internal/domain"
	"uitestgen/internal/resilience"
)

const keyPrefix = "uitestgen:search:"

// ExternalPattern is a test pattern returned by the search API.
type ExternalPattern struct {
	ID          string   `json:"pattern_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Context     string   `json:"context"`
	Quality     float64  `json:"quality_score"`
	CreatedAt   string   `json:"created_at"`
	Tags        []string `json:"tags"`
	Complexity  string   `json:"complexity"`
	Code        string   `json:"code_example"`
	Framework   string   `json:"framework"`
	Language    string   `json:"language"`
	URL         string   `json:"external_url"`
	Author      string   `json:"author"`
	Votes       int      `json:"votes"`
	UsageCount  int      `json:"usage_count"`
	Relevance   float64  `json:"relevance"`
}

// Detail is the full description of one external pattern.
type Detail struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	FullCode         string   `json:"full_code"`
	Documentation    string   `json:"documentation"`
	Dependencies     []string `json:"dependencies"`
	TestCases        []string `json:"test_cases"`
	PerformanceNotes string   `json:"performance_notes"`
	BestPractices    []string `json:"best_practices"`
	RelatedPatterns  []string `json:"related_patterns"`
	URL              string   `json:"url"`
	LastUpdated      string   `json:"last_updated"`
	Version          string   `json:"version"`
}

// Health reports the state of the search integration.
type Health struct {
	APIAvailable bool
	APIReachable bool
	CacheBackend string
	CacheHealthy bool
	BaseURL      string
	LastRequest  time.Time
}

// searchContext narrows a query to one testing area.
type searchContext struct {
	keywords []string
	filters  []string
}

var contexts = map[string]searchContext{
	"mobile": {
		keywords: []string{"mobile app testing", "iOS testing", "Android testing", "mobile automation"},
		filters:  []string{"mobile", "app", "device"},
	},
	"web": {
		keywords: []string{"web testing", "browser automation", "UI testing", "frontend testing"},
		filters:  []string{"web", "browser", "frontend"},
	},
	"api": {
		keywords: []string{"API testing", "REST testing", "GraphQL testing", "endpoint testing"},
		filters:  []string{"api", "rest", "graphql", "endpoint"},
	},
	"performance": {
		keywords: []string{"performance testing", "load testing", "stress testing", "performance monitoring"},
		filters:  []string{"performance", "load", "stress", "monitoring"},
	},
	"accessibility": {
		keywords: []string{"accessibility testing", "WCAG testing", "a11y testing", "screen reader"},
		filters:  []string{"accessibility", "wcag", "a11y", "screenreader"},
	},
}

// DefaultDomainKeywords boost patterns that mention the app's domain.
var DefaultDomainKeywords = []string{"sports", "mlb", "baseball", "game", "score", "player", "team"}

var mobileKeywords = []string{"mobile", "real-time", "live", "streaming", "push"}

// Config configures the search client.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	CacheTTL       time.Duration
	RatePerSec     float64
	DomainKeywords []string
	Policy         *resilience.Policy
	Cache          Cache
	Logger         *zap.Logger
}

// Client queries the external pattern API.
type Client struct {
	baseURL  string
	apiKey   string
	ttl      time.Duration
	keywords []string
	http     *http.Client
	cache    Cache
	limiter  *rate.Limiter
	executor *resilience.Executor
	logger   *zap.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// New returns a Client. An empty APIKey yields a client whose searches return no results.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.linkup.so/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.DomainKeywords == nil {
		cfg.DomainKeywords = DefaultDomainKeywords
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	policy := resilience.DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		ttl:      cfg.CacheTTL,
		keywords: cfg.DomainKeywords,
		http:     &http.Client{Timeout: cfg.Timeout},
		cache:    cfg.Cache,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		executor: resilience.NewExecutor("search", policy, cfg.Logger),
		logger:   cfg.Logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool { return c.apiKey != "" }

// SearchPatterns runs a pattern search in the given context (mobile, web, api,
// performance, accessibility or general). Results are sorted by quality plus relevance.
func (c *Client) SearchPatterns(ctx context.Context, query, searchCtx string, limit int) ([]ExternalPattern, error) {
	if !c.Enabled() {
		c.logger.Debug("no search API key, skipping external search", zap.String("query", query))
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("include_code", "true")
	params.Set("format", "json")
	if sc, ok := contexts[searchCtx]; ok {
		params.Set("keywords", strings.Join(sc.keywords, ","))
		params.Set("filters", strings.Join(sc.filters, ","))
	}
	key := cacheKey("search", query, searchCtx, strconv.Itoa(limit), "true")
	return c.patterns(ctx, key, "/search/patterns", params, searchCtx, c.ttl)
}

// ByComponentType searches for patterns testing one component type.
func (c *Client) ByComponentType(ctx context.Context, componentType string) ([]ExternalPattern, error) {
	query := componentType + " testing UI automation"
	return c.SearchPatterns(ctx, query, ContextFor(componentType), 15)
}

// Trending returns popular patterns for a period (day, week, month). Cached for 30 minutes.
func (c *Client) Trending(ctx context.Context, period, category string) ([]ExternalPattern, error) {
	if !c.Enabled() {
		return nil, nil
	}
	if period == "" {
		period = "week"
	}
	if category == "" {
		category = "all"
	}
	params := url.Values{}
	params.Set("period", period)
	params.Set("category", category)
	params.Set("limit", "10")
	return c.patterns(ctx, cacheKey("trending", period, category), "/patterns/trending", params, "general", 30*time.Minute)
}

// Detail fetches the full record of one pattern. It returns nil without an API key.
func (c *Client) Detail(ctx context.Context, id string) (*Detail, error) {
	if !c.Enabled() {
		return nil, nil
	}
	key := cacheKey("detail", id)
	if raw, ok := c.cached(ctx, key); ok {
		var d Detail
		if err := json.Unmarshal(raw, &d); err == nil {
			return &d, nil
		}
	}
	payload, err := c.get(ctx, "/patterns/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var d Detail
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("decode pattern detail: %w", err)
	}
	if d.Version == "" {
		d.Version = "1.0"
	}
	c.store(ctx, key, d, c.ttl)
	return &d, nil
}

// Health checks the cache and, with an API key, the API itself.
func (c *Client) Health(ctx context.Context) Health {
	h := Health{
		APIAvailable: c.Enabled(),
		CacheBackend: c.cache.Name(),
		CacheHealthy: c.cache.Ping(ctx) == nil,
		BaseURL:      c.baseURL,
	}
	if c.Enabled() {
		_, err := c.get(ctx, "/health", nil)
		h.APIReachable = err == nil
	}
	c.mu.Lock()
	h.LastRequest = c.lastRequest
	c.mu.Unlock()
	return h
}

// ContextFor maps a component type to the search context used for it.
func ContextFor(componentType string) string {
	switch componentType {
	case "button", "list", "navigation", "modal", "form":
		return "mobile"
	case "webview", "chart", "map":
		return "web"
	case "api_endpoint":
		return "api"
	default:
		return "general"
	}
}

// Relevance scores how close p is to the app's domain: 0.1 per domain keyword and 0.05 per
// mobile or real-time keyword found in the title or description, capped at 1.
func (c *Client) Relevance(p ExternalPattern) float64 {
	return relevance(p, c.keywords)
}

func relevance(p ExternalPattern, domainKeywords []string) float64 {
	text := strings.ToLower(p.Title + " " + p.Description)
	score := 0.0
	for _, k := range domainKeywords {
		if strings.Contains(text, k) {
			score += 0.1
		}
	}
	for _, k := range mobileKeywords {
		if strings.Contains(text, k) {
			score += 0.05
		}
	}
	return min(score, 1.0)
}

// Complexity classifies a pattern by code length and dependency count.
func Complexity(code string, dependencies int) string {
	switch {
	case len(code) < 100 && dependencies < 2:
		return "simple"
	case len(code) < 500 && dependencies < 5:
		return "medium"
	default:
		return "complex"
	}
}

// ToPattern converts p into a stored pattern for componentType.
func ToPattern(p ExternalPattern, componentType string) domain.Pattern {
	desc := p.Title
	if p.Description != "" {
		desc += ": " + p.Description
	}
	return domain.Pattern{
		ID:            "external_" + p.ID,
		ComponentType: componentType,
		Description:   desc,
		Template:      p.Code,
		Tags:          append([]string{componentType, "external"}, p.Tags...),
		Complexity:    p.Complexity,
		Source:        domain.SourceExternal,
	}
}

// rawPattern is the API's item shape.
type rawPattern struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Score        float64  `json:"score"`
	CreatedAt    string   `json:"created_at"`
	Tags         []string `json:"tags"`
	Code         string   `json:"code_example"`
	Framework    string   `json:"framework"`
	Language     string   `json:"language"`
	URL          string   `json:"url"`
	Author       string   `json:"author"`
	Votes        int      `json:"votes"`
	UsageCount   int      `json:"usage_count"`
	Dependencies []string `json:"dependencies"`
}

func (c *Client) patterns(ctx context.Context, key, path string, params url.Values, searchCtx string, ttl time.Duration) ([]ExternalPattern, error) {
	if raw, ok := c.cached(ctx, key); ok {
		var out []ExternalPattern
		if err := json.Unmarshal(raw, &out); err == nil {
			c.logger.Debug("search cache hit", zap.String("path", path))
			return out, nil
		}
	}
	payload, err := c.get(ctx, path, params)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results  []rawPattern `json:"results"`
		Patterns []rawPattern `json:"patterns"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	items := resp.Results
	if items == nil {
		items = resp.Patterns
	}
	out := make([]ExternalPattern, 0, len(items))
	for _, it := range items {
		lang := it.Language
		if lang == "" {
			lang = "python"
		}
		p := ExternalPattern{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			Source:      "linkup",
			Context:     searchCtx,
			Quality:     it.Score,
			CreatedAt:   it.CreatedAt,
			Tags:        it.Tags,
			Complexity:  Complexity(it.Code, len(it.Dependencies)),
			Code:        it.Code,
			Framework:   it.Framework,
			Language:    lang,
			URL:         it.URL,
			Author:      it.Author,
			Votes:       it.Votes,
			UsageCount:  it.UsageCount,
		}
		p.Relevance = c.Relevance(p)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quality+out[i].Relevance > out[j].Quality+out[j].Relevance
	})
	c.store(ctx, key, out, ttl)
	c.logger.Info("external patterns found", zap.String("path", path), zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var payload []byte
	err := c.executor.Run(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return resilience.Permanent(err)
		}
		c.mu.Lock()
		c.lastRequest = time.Now()
		c.mu.Unlock()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return resilience.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "uitestgen/1.0")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if err := resilience.CheckResponse(resp, "search "+path); err != nil {
			return err
		}
		payload, err = io.ReadAll(resp.Body)
		return err
	})
	return payload, err
}

func (c *Client) cached(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("search cache read failed", zap.String("backend", c.cache.Name()), zap.Error(err))
		return nil, false
	}
	return raw, ok
}

func (c *Client) store(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, ttl); err != nil {
		c.logger.Warn("search cache write failed", zap.String("backend", c.cache.Name()), zap.Error(err))
	}
}

func cacheKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return keyPrefix + hex.EncodeToString(sum[:])
}
