package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/resilience"
)

type fakeAPI struct {
	*httptest.Server
	calls  atomic.Int32
	status atomic.Int32
	last   atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{}
	f.status.Store(http.StatusOK)
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.last.Store(r.URL.Query())
		if r.Header.Get("Authorization") != "Bearer key-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if code := int(f.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		switch r.URL.Path {
		case "/search/patterns":
			_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{
				{"id": "p1", "title": "Generic button test", "description": "clicks things", "score": 0.6, "code_example": "def test_a():\n    pass"},
				{"id": "p2", "title": "Live score button", "description": "mobile sports app", "score": 0.6,
					"dependencies": []string{"selenium", "pytest", "requests", "appium", "faker"}},
			}})
		case "/patterns/trending":
			_ = json.NewEncoder(w).Encode(map[string]any{"patterns": []map[string]any{
				{"id": "t1", "title": "Trending", "score": 0.9},
			}})
		case "/patterns/p1":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "p1", "title": "Generic button test", "dependencies": []string{"selenium"}})
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func fastPolicy() *resilience.Policy {
	return &resilience.Policy{MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func newClient(baseURL string, cache Cache) *Client {
	return New(Config{
		BaseURL:    baseURL,
		APIKey:     "key-123",
		RatePerSec: 1000,
		Policy:     fastPolicy(),
		Cache:      cache,
		Logger:     zap.NewNop(),
	})
}

func TestSearchWithoutKeyReturnsNothing(t *testing.T) {
	api := newFakeAPI(t)
	c := New(Config{BaseURL: api.URL})

	got, err := c.SearchPatterns(context.Background(), "button", "mobile", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	trending, err := c.Trending(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, trending)
	assert.Zero(t, api.calls.Load())
}

func TestSearchPatterns(t *testing.T) {
	api := newFakeAPI(t)
	c := newClient(api.URL, NewMemoryCache())

	got, err := c.ByComponentType(context.Background(), "button")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// the sports/mobile pattern ranks first on relevance
	assert.Equal(t, "p2", got[0].ID)
	assert.InDelta(t, 0.3, got[0].Relevance, 1e-9)
	assert.Equal(t, "complex", got[0].Complexity)
	assert.Equal(t, "mobile", got[0].Context)
	assert.Equal(t, "linkup", got[0].Source)
	assert.Equal(t, "python", got[1].Language)
	assert.Equal(t, "simple", got[1].Complexity)

	q := api.last.Load().(url.Values)
	assert.Equal(t, []string{"button testing UI automation"}, q["q"])
	assert.Equal(t, []string{"15"}, q["limit"])
	assert.Equal(t, []string{"mobile,app,device"}, q["filters"])
	assert.Equal(t, []string{"json"}, q["format"])
}

func TestSearchUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := newFakeAPI(t)
	c := newClient(api.URL, NewRedisCache(client))
	ctx := context.Background()

	first, err := c.SearchPatterns(ctx, "list scrolling", "web", 5)
	require.NoError(t, err)
	second, err := c.SearchPatterns(ctx, "list scrolling", "web", 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, api.calls.Load())

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "uitestgen:search:")
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))

	mr.FastForward(2 * time.Hour)
	_, err = c.SearchPatterns(ctx, "list scrolling", "web", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestTrendingCachedForHalfAnHour(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	api := newFakeAPI(t)
	c := newClient(api.URL, NewRedisCache(client))

	got, err := c.Trending(context.Background(), "day", "mobile")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
	assert.Equal(t, "general", got[0].Context)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 30*time.Minute, mr.TTL(keys[0]))
}

func TestDetail(t *testing.T) {
	api := newFakeAPI(t)
	c := newClient(api.URL, NewMemoryCache())

	d, err := c.Detail(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Generic button test", d.Title)
	assert.Equal(t, "1.0", d.Version)
	assert.Equal(t, []string{"selenium"}, d.Dependencies)
}

func TestSearchServerError(t *testing.T) {
	api := newFakeAPI(t)
	api.status.Store(http.StatusInternalServerError)
	c := newClient(api.URL, NewMemoryCache())

	_, err := c.SearchPatterns(context.Background(), "form", "web", 5)
	require.Error(t, err)
	// one attempt plus one retry
	assert.EqualValues(t, 2, api.calls.Load())
}

func TestHealth(t *testing.T) {
	api := newFakeAPI(t)
	h := newClient(api.URL, NewMemoryCache()).Health(context.Background())
	assert.True(t, h.APIAvailable)
	assert.True(t, h.APIReachable)
	assert.True(t, h.CacheHealthy)
	assert.Equal(t, "memory", h.CacheBackend)
	assert.False(t, h.LastRequest.IsZero())

	h = New(Config{BaseURL: api.URL}).Health(context.Background())
	assert.False(t, h.APIAvailable)
	assert.False(t, h.APIReachable)
	assert.True(t, h.LastRequest.IsZero())
}

func TestOpenCacheFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "memory", OpenCache(ctx, nil, nil).Name())
	assert.Equal(t, "memory", OpenCache(ctx, &RedisOptions{Addr: "127.0.0.1:1"}, zap.NewNop()).Name())

	mr := miniredis.RunT(t)
	c := OpenCache(ctx, &RedisOptions{Addr: mr.Addr()}, zap.NewNop())
	assert.Equal(t, "redis", c.Name())
	require.NoError(t, c.(*RedisCache).Close())
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestRelevanceAndComplexity(t *testing.T) {
	p := ExternalPattern{Title: "Baseball game score tracker", Description: "live updates for the team player"}
	// baseball, game, score, player, team + live
	assert.InDelta(t, 0.55, relevance(p, DefaultDomainKeywords), 1e-9)

	many := ExternalPattern{Title: "sports mlb baseball game score player team", Description: "mobile real-time live streaming push"}
	assert.InDelta(t, 0.95, relevance(many, DefaultDomainKeywords), 1e-9)
	assert.Equal(t, 1.0, relevance(many, []string{"sports", "mlb", "baseball", "game", "score", "player", "team", "mobile", "push"}))

	assert.Equal(t, "simple", Complexity("x", 1))
	assert.Equal(t, "medium", Complexity(string(make([]byte, 200)), 3))
	assert.Equal(t, "complex", Complexity("x", 5))
}

func TestContextForAndToPattern(t *testing.T) {
	assert.Equal(t, "mobile", ContextFor("button"))
	assert.Equal(t, "web", ContextFor("webview"))
	assert.Equal(t, "api", ContextFor("api_endpoint"))
	assert.Equal(t, "general", ContextFor("video"))

	p := ToPattern(ExternalPattern{ID: "p1", Title: "Click", Description: "button", Code: "def test_a(): pass", Tags: []string{"ui"}}, "button")
	assert.Equal(t, "external_p1", p.ID)
	assert.Equal(t, domain.SourceExternal, p.Source)
	assert.Equal(t, "Click: button", p.Description)
	assert.Equal(t, []string{"button", "external", "ui"}, p.Tags)
}
