package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/pattern"
	"uitestgen/internal/search"
)

// Searcher finds stored patterns similar to a component.
type Searcher interface {
	Similar(ctx context.Context, c domain.Component, topK int) ([]domain.Match, error)
}

// ExternalSearcher finds published patterns for a component type.
type ExternalSearcher interface {
	ByComponentType(ctx context.Context, componentType string) ([]search.ExternalPattern, error)
}

// Discovery lists the patterns found for one component.
type Discovery struct {
	ComponentID string
	// Matches are stored patterns at or above the discovery threshold, best first.
	Matches []domain.Match
	// Synthesized patterns are proposed when fewer than two stored patterns match.
	Synthesized []domain.Pattern
	External    []search.ExternalPattern
}

// DiscovererConfig tunes discovery.
type DiscovererConfig struct {
	Threshold        float64
	TopK             int
	QualityThreshold float64
}

// Discoverer finds reusable patterns for components and keeps usage counts.
type Discoverer struct {
	store    Searcher
	external ExternalSearcher
	cfg      DiscovererConfig
	logger   *zap.Logger

	mu    sync.Mutex
	usage map[string]int
}

// NewDiscoverer returns a Discoverer. external may be nil.
func NewDiscoverer(store Searcher, external ExternalSearcher, cfg DiscovererConfig, logger *zap.Logger) *Discoverer {
	if cfg.Threshold == 0 {
		cfg.Threshold = 0.8
	}
	if cfg.TopK == 0 {
		cfg.TopK = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{store: store, external: external, cfg: cfg, logger: logger, usage: make(map[string]int)}
}

// Discover searches the store for c. External search failures are logged and skipped.
func (d *Discoverer) Discover(ctx context.Context, c domain.Component) (Discovery, error) {
	res := Discovery{ComponentID: c.ID}
	matches, err := d.store.Similar(ctx, c, d.cfg.TopK)
	if err != nil {
		return res, fmt.Errorf("discover %s: %w", c.ID, err)
	}

	type ranked struct {
		m     domain.Match
		final float64
	}
	d.mu.Lock()
	var kept []ranked
	for _, m := range matches {
		if m.Score < d.cfg.Threshold {
			continue
		}
		boost := min(float64(d.usage[m.Pattern.ID])/100, 0.3)
		kept = append(kept, ranked{m: m, final: m.Score + boost})
	}
	d.mu.Unlock()
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].final > kept[j].final })
	for _, r := range kept {
		res.Matches = append(res.Matches, r.m)
	}

	if len(res.Matches) < 2 {
		res.Synthesized = Synthesize(c)
	}

	if d.external != nil {
		ext, err := d.external.ByComponentType(ctx, c.Type)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			d.logger.Warn("external pattern search failed", zap.String("component", c.ID), zap.Error(err))
		default:
			for _, p := range ext {
				if p.Quality >= d.cfg.QualityThreshold {
					res.External = append(res.External, p)
				}
			}
		}
	}

	d.mu.Lock()
	for _, m := range res.Matches {
		d.usage[m.Pattern.ID]++
	}
	d.mu.Unlock()

	d.logger.Debug("patterns discovered",
		zap.String("component", c.ID),
		zap.Int("matches", len(res.Matches)),
		zap.Int("synthesized", len(res.Synthesized)),
		zap.Int("external", len(res.External)))
	return res, nil
}

// Usage returns how often each stored pattern has been discovered.
func (d *Discoverer) Usage() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.usage))
	for k, v := range d.usage {
		out[k] = v
	}
	return out
}

var typeInteractions = map[string][]string{
	"button":     {"click", "tap"},
	"list":       {"scroll", "select", "swipe"},
	"form":       {"input", "submit", "validate"},
	"modal":      {"dismiss", "close"},
	"webview":    {"load", "navigate", "scroll"},
	"navigation": {"navigate", "select"},
}

var basicSteps = map[string][]string{
	"button":       {"Verify button is visible", "Click button", "Verify expected action"},
	"list":         {"Verify list loads", "Check item count", "Test scrolling", "Verify item selection"},
	"form":         {"Verify form fields", "Fill valid data", "Submit form", "Verify submission"},
	"modal":        {"Verify modal opens", "Check content", "Test close functionality"},
	"webview":      {"Verify webview loads", "Check URL", "Test navigation"},
	"api_endpoint": {"Send request", "Verify response status", "Validate response data"},
}

var interactionSteps = map[string][]string{
	"click":  {"Locate clickable element", "Perform click action", "Verify response"},
	"scroll": {"Identify scrollable area", "Perform scroll action", "Verify content change"},
	"input":  {"Locate input field", "Enter test data", "Verify input acceptance"},
	"swipe":  {"Identify swipe area", "Perform swipe gesture", "Verify gesture response"},
}

// Interactions lists the interactions c supports: its declared ones plus those of its type.
func Interactions(c domain.Component) []string {
	seen := map[string]bool{}
	for _, s := range props(c.Properties).strs("interactions") {
		seen[s] = true
	}
	for _, s := range typeInteractions[c.Type] {
		seen[s] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Synthesize proposes a base pattern and one pattern per interaction for c.
// The patterns describe test steps and carry no template.
func Synthesize(c domain.Component) []domain.Pattern {
	steps, ok := basicSteps[c.Type]
	if !ok {
		steps = []string{"Verify component exists", "Test basic functionality"}
	}
	out := []domain.Pattern{{
		ID:            c.Type + "_basic_testing",
		ComponentType: c.Type,
		Description:   c.Type + " basic testing: " + strings.Join(steps, "; "),
		Tags:          append([]string{c.Type, "base"}, pattern.StrategiesFor(c.Type)...),
		Complexity:    "simple",
		Source:        domain.SourceGenerated,
	}}
	for _, in := range Interactions(c) {
		steps, ok := interactionSteps[in]
		if !ok {
			steps = []string{"Test " + in + " interaction"}
		}
		out = append(out, domain.Pattern{
			ID:            c.Type + "_" + in + "_interaction_testing",
			ComponentType: c.Type,
			Description:   in + " interaction testing: " + strings.Join(steps, "; "),
			Tags:          []string{c.Type, "interaction", in},
			Complexity:    "simple",
			Source:        domain.SourceGenerated,
		})
	}
	return out
}
