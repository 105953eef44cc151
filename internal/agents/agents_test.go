package agents

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/search"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func comp(props map[string]any) domain.Component {
	id, _ := props["id"].(string)
	typ, _ := props["type"].(string)
	url, _ := props["url"].(string)
	auth, _ := props["requires_auth"].(bool)
	return domain.Component{ID: id, Type: typ, URL: url, RequiresAuth: auth, Properties: props}
}

func TestValidateCleanButton(t *testing.T) {
	v := NewValidator(zap.NewNop()).Validate(comp(map[string]any{
		"id": "buy", "type": "button", "action": "purchase", "text": "Buy",
		"accessibility_label": "Buy tickets", "role": "button", "height": 48.0,
	}))
	assert.True(t, v.Valid)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, 100, v.AccessibilityScore)
	assert.Equal(t, 100, v.DesignScore)
	assert.Equal(t, 100, v.CrossPlatformScore)
}

func TestValidateFindings(t *testing.T) {
	v := NewValidator(nil).Validate(comp(map[string]any{
		"id": "buy", "type": "button", "height": 30.0,
		"background_color": "#FFFFFF", "text_color": "white",
		"ios_style": "filled", "width": "120px",
	}))
	assert.False(t, v.Valid)
	assert.Contains(t, v.Errors, "Missing required field: action")
	assert.Contains(t, v.Errors, "Button must have either text or icon")
	assert.Contains(t, v.Errors, "Insufficient color contrast: white text on white background")
	// -10 missing action, -15 no text
	assert.Equal(t, 75, v.DesignScore)
	// -15 label, -10 role, -25 contrast, -10 height
	assert.Equal(t, 40, v.AccessibilityScore)
	// -5 platform style, -5 fixed pixels
	assert.Equal(t, 90, v.CrossPlatformScore)
}

func TestValidateTypeRules(t *testing.T) {
	val := NewValidator(nil)

	modal := val.Validate(comp(map[string]any{"id": "m", "type": "modal", "title": "Hi", "closable": false, "label": "m"}))
	assert.Contains(t, modal.Errors, "Modal must be dismissible or have close button")

	modal = val.Validate(comp(map[string]any{"id": "m", "type": "modal", "title": "Hi", "closable": true, "label": "m"}))
	assert.True(t, modal.Valid)

	list := val.Validate(comp(map[string]any{"id": "l", "type": "list", "items": []any{}, "label": "l"}))
	assert.True(t, list.Valid, "an empty items array is present")
	assert.Contains(t, list.Recommendations, "Consider adding empty state message")

	form := val.Validate(comp(map[string]any{"id": "f", "type": "form", "fields": []any{"email"}, "label": "f"}))
	assert.Contains(t, form.Recommendations, "Consider adding input validation")
	assert.Contains(t, form.Warnings, "Form should have clear submit mechanism")

	both := val.Validate(comp(map[string]any{"id": "x", "type": "text", "ios_style": "a", "material_style": "b"}))
	assert.Contains(t, both.Warnings, "Component has both iOS and Android specific styles")
	assert.Equal(t, 90, both.CrossPlatformScore)
}

func TestAnalyzeREST(t *testing.T) {
	a := NewAnalyzer(zap.NewNop()).Analyze(comp(map[string]any{
		"id": "profile_api", "type": "api_endpoint", "url": "http://api.example.com/getUser/profile/?token=abc",
		"method": "get", "requires_auth": true, "headers": map[string]any{"content-type": "application/json"},
	}))
	assert.False(t, a.GraphQL)
	assert.Equal(t, "GET", a.Method)
	assert.Contains(t, a.Recommendations, "Consider including API version in URL path")
	assert.Contains(t, a.Recommendations, "Consider using plural nouns for collection resources")
	assert.Contains(t, a.Recommendations, "Consider including Authorization header")
	assert.NotContains(t, a.Recommendations, "Consider including Content-Type header")
	assert.Contains(t, a.Warnings, "Trailing slash in endpoint path")
	assert.Contains(t, a.Warnings, "Consider using HTTPS for secure communication")
	assert.Contains(t, a.Security, "Endpoint should use HTTPS")
	assert.Contains(t, a.Security, `Credential "token" passed in the query string`)
	assert.Contains(t, a.Security, "Endpoint requires auth but declares no Authorization header")
	assert.Contains(t, a.Security, "Endpoint requires authentication - verify token validation")

	var names []string
	for _, p := range a.TestPatterns {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"happy_path_test", "test_404_handling", "test_timeout_handling", "test_security_headers", "test_unauthorized_rejected"}, names)
}

func TestAnalyzeVerbInPath(t *testing.T) {
	a := NewAnalyzer(nil).Analyze(comp(map[string]any{
		"id": "x", "type": "api_endpoint", "url": "https://api.example.com/v1/create_order", "method": "POST",
	}))
	assert.Contains(t, a.Warnings, `Path segment "create_order" is a verb; let the HTTP method carry the action`)
	assert.NotContains(t, a.Recommendations, "Consider including API version in URL path")
	assert.Empty(t, a.Security)
}

func TestAnalyzeGraphQL(t *testing.T) {
	a := NewAnalyzer(nil).Analyze(comp(map[string]any{
		"id": "scores", "type": "api_endpoint", "url": "https://api.example.com/graphql", "method": "POST",
		"query":     "query LiveScores($gameId: ID!, $inning: Int) { game(id: $gameId) { teams { home } } }",
		"variables": map[string]any{"gameId": "1", "extra": true},
	}))
	require.True(t, a.GraphQL)
	require.NotNil(t, a.Query)
	assert.Equal(t, "query", a.Query.Operation)
	assert.Equal(t, "LiveScores", a.Query.Name)
	assert.Equal(t, []string{"game", "teams"}, a.Query.Fields)
	assert.Equal(t, map[string]string{"gameId": "ID!", "inning": "Int"}, a.Query.Variables)
	assert.Contains(t, a.Errors, "Missing required variables: inning")
	assert.Contains(t, a.Warnings, "Unused variables provided: extra")
	assert.Equal(t, "high", a.Complexity)

	bare := NewAnalyzer(nil).Analyze(comp(map[string]any{"id": "g", "type": "api_endpoint", "url": "https://x/graphql"}))
	assert.Contains(t, bare.Errors, "GraphQL endpoint missing query or introspection flag")
}

type fakeStore struct {
	matches []domain.Match
	err     error
}

func (f fakeStore) Similar(context.Context, domain.Component, int) ([]domain.Match, error) {
	return f.matches, f.err
}

type fakeExternal struct {
	mu    sync.Mutex
	calls int
	out   []search.ExternalPattern
	err   error
}

func (f *fakeExternal) ByComponentType(context.Context, string) ([]search.ExternalPattern, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.out, f.err
}

func match(id string, score float64) domain.Match {
	return domain.Match{Pattern: domain.Pattern{ID: id}, Score: score}
}

func TestDiscoverFiltersAndRanks(t *testing.T) {
	store := fakeStore{matches: []domain.Match{match("a", 0.85), match("b", 0.95), match("c", 0.5)}}
	d := NewDiscoverer(store, nil, DiscovererConfig{Threshold: 0.8}, zap.NewNop())

	res, err := d.Discover(context.Background(), comp(map[string]any{"id": "buy", "type": "button"}))
	require.NoError(t, err)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "b", res.Matches[0].Pattern.ID)
	assert.Equal(t, "a", res.Matches[1].Pattern.ID)
	assert.Empty(t, res.Synthesized)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, d.Usage())
}

func TestDiscoverUsageBoostsRanking(t *testing.T) {
	store := fakeStore{matches: []domain.Match{match("a", 0.85), match("b", 0.86)}}
	d := NewDiscoverer(store, nil, DiscovererConfig{}, nil)
	d.usage["a"] = 10

	res, err := d.Discover(context.Background(), comp(map[string]any{"id": "buy", "type": "button"}))
	require.NoError(t, err)
	assert.Equal(t, "a", res.Matches[0].Pattern.ID)
}

func TestDiscoverSynthesizesWhenFewMatches(t *testing.T) {
	store := fakeStore{matches: []domain.Match{match("a", 0.9)}}
	ext := &fakeExternal{out: []search.ExternalPattern{{ID: "good", Quality: 0.9}, {ID: "poor", Quality: 0.2}}}
	d := NewDiscoverer(store, ext, DiscovererConfig{QualityThreshold: 0.7}, nil)

	res, err := d.Discover(context.Background(), comp(map[string]any{"id": "feed", "type": "list", "interactions": []any{"refresh"}}))
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)

	var ids []string
	for _, p := range res.Synthesized {
		ids = append(ids, p.ID)
		assert.Equal(t, domain.SourceGenerated, p.Source)
	}
	assert.Equal(t, []string{
		"list_basic_testing",
		"list_refresh_interaction_testing",
		"list_scroll_interaction_testing",
		"list_select_interaction_testing",
		"list_swipe_interaction_testing",
	}, ids)
	assert.Contains(t, res.Synthesized[0].Description, "Verify list loads")

	require.Len(t, res.External, 1)
	assert.Equal(t, "good", res.External[0].ID)
}

func TestDiscoverErrors(t *testing.T) {
	d := NewDiscoverer(fakeStore{err: errors.New("store down")}, nil, DiscovererConfig{}, nil)
	_, err := d.Discover(context.Background(), comp(map[string]any{"id": "x", "type": "button"}))
	require.Error(t, err)

	ext := &fakeExternal{err: errors.New("503")}
	d = NewDiscoverer(fakeStore{}, ext, DiscovererConfig{}, nil)
	res, err := d.Discover(context.Background(), comp(map[string]any{"id": "x", "type": "button"}))
	require.NoError(t, err)
	assert.Empty(t, res.External)
	assert.NotEmpty(t, res.Synthesized)
}

func TestCrewRun(t *testing.T) {
	screen := domain.Screen{Name: "Home", Components: []domain.Component{
		comp(map[string]any{"id": "buy", "type": "button", "action": "buy", "text": "Buy", "label": "Buy", "role": "button"}),
		comp(map[string]any{"id": "scores_api", "type": "api_endpoint", "url": "https://api.example.com/graphql", "method": "POST"}),
		comp(map[string]any{"id": "feed", "type": "list"}),
		comp(map[string]any{"id": "news_api", "type": "api_endpoint", "url": "http://api.example.com/v1/news", "method": "GET", "label": "n"}),
	}}
	ext := &fakeExternal{}
	d := NewDiscoverer(fakeStore{matches: []domain.Match{match("a", 0.9), match("b", 0.85)}}, ext, DiscovererConfig{}, nil)
	crew := NewCrew(NewValidator(nil), NewAnalyzer(nil), d, 2, zap.NewNop())

	r, err := crew.Run(context.Background(), screen)
	require.NoError(t, err)
	assert.Equal(t, "Home", r.Screen)
	require.Len(t, r.Validations, 4)
	for i, c := range screen.Components {
		assert.Equal(t, c.ID, r.Validations[i].ComponentID)
		assert.Equal(t, c.ID, r.Discoveries[i].ComponentID)
	}
	require.Len(t, r.Analyses, 2)
	assert.Equal(t, "scores_api", r.Analyses[0].ComponentID)
	assert.Equal(t, "news_api", r.Analyses[1].ComponentID)

	assert.Equal(t, 4, r.Summary.Components)
	assert.Equal(t, 3, r.Summary.Valid)
	assert.Equal(t, 1, r.Summary.Invalid)
	assert.False(t, r.Validations[2].Valid)
	assert.Equal(t, 2, r.Summary.Endpoints)
	assert.Equal(t, 1, r.Summary.GraphQLEndpoints)
	assert.Equal(t, 8, r.Summary.Matched)
	assert.Equal(t, 4, ext.calls)
}

func TestCrewRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDiscoverer(fakeStore{err: context.Canceled}, nil, DiscovererConfig{}, nil)
	crew := NewCrew(NewValidator(nil), NewAnalyzer(nil), d, 1, nil)
	_, err := crew.Run(ctx, domain.Screen{Name: "Home", Components: []domain.Component{{ID: "a", Type: "text"}}})
	require.ErrorIs(t, err, context.Canceled)
}
