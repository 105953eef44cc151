// Package service runs the generation pipeline: pattern ingest, per-component test
// generation with pattern reuse, verification and pattern search for the browser.
package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uitestgen/internal/agents"
	"uitestgen/internal/domain"
	"uitestgen/internal/embedding"
	"uitestgen/internal/generator"
	"uitestgen/internal/pattern"
	"uitestgen/internal/search"
	"uitestgen/internal/summarizer"
	"uitestgen/internal/vectorstore"
	"uitestgen/internal/verify"
)

// Config tunes the pipeline.
type Config struct {
	// SimilarityThreshold is the score a stored pattern must exceed to be adapted.
	SimilarityThreshold   float64
	DiscoveryThreshold    float64
	QualityThreshold      float64
	TopK                  int
	EdgeCasesPerComponent int
	Concurrency           int
}

// Deps are the collaborators of a Service. Search may be nil.
type Deps struct {
	Embedder  embedding.Embedder
	Store     vectorstore.Storage
	Generator *generator.Generator
	Checker   *verify.Checker
	Search    *search.Client
	Logger    *zap.Logger
}

// Suite is a generated test suite plus the crew's review of its screen.
type Suite struct {
	domain.Suite
	RunID    string
	Report   agents.Report
	Duration time.Duration
}

// Service wires the pipeline stages together. It is safe for concurrent use.
type Service struct {
	embedder  embedding.Embedder
	store     vectorstore.Storage
	generator *generator.Generator
	checker   *verify.Checker
	search    *search.Client
	extractor *pattern.Extractor
	crew      *agents.Crew
	discovery *agents.Discoverer
	condense  *summarizer.Summarizer
	cfg       Config
	logger    *zap.Logger

	mu       sync.RWMutex
	prepared bool
	ready    bool
	// known mirrors the stored patterns ingested by this process for the lexical fallback.
	known map[string]domain.Pattern
}

// New returns a Service. Zero Config fields take the pipeline defaults.
func New(d Deps, cfg Config) *Service {
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.7
	}
	if cfg.DiscoveryThreshold == 0 {
		cfg.DiscoveryThreshold = 0.8
	}
	if cfg.QualityThreshold == 0 {
		cfg.QualityThreshold = 0.7
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.EdgeCasesPerComponent < 0 {
		cfg.EdgeCasesPerComponent = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checker := d.Checker
	if checker == nil {
		checker = verify.NewChecker()
	}
	s := &Service{
		embedder:  d.Embedder,
		store:     d.Store,
		generator: d.Generator,
		checker:   checker,
		search:    d.Search,
		extractor: pattern.NewExtractor(),
		condense:  summarizer.New(2, 280),
		cfg:       cfg,
		logger:    logger,
		known:     make(map[string]domain.Pattern),
	}

	var external agents.ExternalSearcher
	if d.Search != nil && d.Search.Enabled() {
		external = d.Search
	}
	s.discovery = agents.NewDiscoverer(s, external, agents.DiscovererConfig{
		Threshold:        cfg.DiscoveryThreshold,
		QualityThreshold: cfg.QualityThreshold,
	}, logger.Named("discoverer"))
	s.crew = agents.NewCrew(agents.NewValidator(logger), agents.NewAnalyzer(logger), s.discovery, cfg.Concurrency, logger.Named("crew"))
	return s
}

// Corpus is the fixed text the embedder is prepared over: the seed patterns plus one line
// per supported component type. It does not depend on what has been ingested, so vectors
// from separate runs stay comparable.
func Corpus() []string {
	seeds := pattern.Seeds()
	out := make([]string, 0, len(seeds)+len(pattern.SupportedTypes()))
	for _, p := range seeds {
		out = append(out, pattern.EmbeddingText(p))
	}
	for _, t := range pattern.SupportedTypes() {
		out = append(out, t+" "+strings.Join(pattern.RequiredFields(t), " ")+" "+strings.Join(pattern.StrategiesFor(t), " "))
	}
	return out
}

func (s *Service) prepare(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prepared {
		return nil
	}
	if err := s.embedder.Prepare(ctx, Corpus()); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	s.prepared = true
	return nil
}

// ensureReady ingests the seed patterns once per process.
func (s *Service) ensureReady(ctx context.Context) error {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()
	if ready {
		return nil
	}
	_, err := s.IngestPatterns(ctx, nil)
	return err
}

// Reset empties the store.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	s.mu.Lock()
	s.known = make(map[string]domain.Pattern)
	s.ready = false
	s.mu.Unlock()
	return nil
}

// IngestPatterns stores the seed patterns plus extra and returns how many were written.
// A later pattern replaces an earlier one with the same ID.
func (s *Service) IngestPatterns(ctx context.Context, extra []domain.Pattern) (int, error) {
	if err := s.prepare(ctx); err != nil {
		return 0, err
	}
	patterns := append(pattern.Seeds(), extra...)
	if err := s.upsert(ctx, patterns); err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.logger.Info("patterns ingested",
		zap.Int("seeds", len(patterns)-len(extra)),
		zap.Int("extra", len(extra)),
		zap.String("embedder", s.embedder.Name()))
	return len(patterns), nil
}

// IngestExternal pulls published patterns for every supported component type, keeps those
// at or above the quality threshold that carry a test function, and ingests them.
func (s *Service) IngestExternal(ctx context.Context) (int, error) {
	if s.search == nil || !s.search.Enabled() {
		return 0, fmt.Errorf("external search is not configured")
	}
	var extra []domain.Pattern
	for _, t := range pattern.SupportedTypes() {
		found, err := s.search.ByComponentType(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			s.logger.Warn("external search failed", zap.String("type", t), zap.Error(err))
			continue
		}
		for _, p := range found {
			if sp, ok := s.external(ctx, p, t); ok {
				extra = append(extra, sp)
			}
		}
	}
	return s.ingestFound(ctx, extra)
}

// IngestTrending stores the trending patterns of period (day, week or month) that pass the
// same filters as IngestExternal. A pattern's component type is its first supported tag.
func (s *Service) IngestTrending(ctx context.Context, period string) (int, error) {
	if s.search == nil || !s.search.Enabled() {
		return 0, fmt.Errorf("external search is not configured")
	}
	found, err := s.search.Trending(ctx, period, "")
	if err != nil {
		return 0, fmt.Errorf("trending patterns: %w", err)
	}
	var extra []domain.Pattern
	for _, p := range found {
		t := "generic"
		for _, tag := range p.Tags {
			if pattern.Supported(tag) {
				t = tag
				break
			}
		}
		if sp, ok := s.external(ctx, p, t); ok {
			extra = append(extra, sp)
		}
	}
	return s.ingestFound(ctx, extra)
}

// external converts p when it is good enough to store. A result without a test function
// is looked up in full and kept when the full code has one.
func (s *Service) external(ctx context.Context, p search.ExternalPattern, componentType string) (domain.Pattern, bool) {
	if p.Quality < s.cfg.QualityThreshold {
		return domain.Pattern{}, false
	}
	if !strings.Contains(p.Code, "def test_") {
		d, err := s.search.Detail(ctx, p.ID)
		if err != nil {
			s.logger.Debug("pattern detail failed", zap.String("pattern", p.ID), zap.Error(err))
			return domain.Pattern{}, false
		}
		if d == nil || !strings.Contains(d.FullCode, "def test_") {
			return domain.Pattern{}, false
		}
		p.Code = d.FullCode
	}
	sp := search.ToPattern(p, componentType)
	sp.Description = s.condense.Summarize(sp.Description)
	return sp, true
}

func (s *Service) ingestFound(ctx context.Context, extra []domain.Pattern) (int, error) {
	if len(extra) == 0 {
		return 0, nil
	}
	if _, err := s.IngestPatterns(ctx, extra); err != nil {
		return 0, err
	}
	return len(extra), nil
}

// upsert embeds patterns, fixes the store dimension from the first vector and writes them.
func (s *Service) upsert(ctx context.Context, patterns []domain.Pattern) error {
	texts := make([]string, len(patterns))
	for i, p := range patterns {
		texts[i] = pattern.EmbeddingText(p)
	}
	vectors, err := embedding.EmbedAll(ctx, s.embedder, texts)
	if err != nil {
		return err
	}
	if len(vectors) == 0 {
		return nil
	}
	if err := s.store.Init(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if err := s.store.Upsert(ctx, patterns, vectors); err != nil {
		return fmt.Errorf("upsert patterns: %w", err)
	}
	s.mu.Lock()
	for _, p := range patterns {
		s.known[p.ID] = p
	}
	s.mu.Unlock()
	return nil
}

// Similar returns the stored patterns closest to c, best first.
func (s *Service) Similar(ctx context.Context, c domain.Component, topK int) ([]domain.Match, error) {
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, pattern.QueryText(c))
	if err != nil {
		return nil, fmt.Errorf("embed component %s: %w", c.ID, err)
	}
	if embedding.IsZero(vec) {
		return nil, nil
	}
	return s.store.Search(ctx, vec, topK)
}

// Generate runs the pipeline over one screen.
func (s *Service) Generate(ctx context.Context, screen domain.Screen) (*Suite, error) {
	start := time.Now()
	extracted, err := s.extractor.Extract(screen)
	if err != nil {
		return nil, fmt.Errorf("screen %s: %w", screen.Name, err)
	}
	if err := s.ensureReady(ctx); err != nil {
		return nil, err
	}
	report, err := s.crew.Run(ctx, screen)
	if err != nil {
		return nil, err
	}

	slots := make([][]domain.GeneratedTest, len(screen.Components))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range screen.Components {
		g.Go(func() error {
			tests, err := s.component(gctx, c, extracted[i].Strategies)
			if err != nil {
				return err
			}
			slots[i] = tests
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite := &Suite{RunID: uuid.NewString(), Report: report}
	suite.Screen = screen
	for _, tests := range slots {
		suite.Tests = append(suite.Tests, tests...)
	}
	if it, ok := s.generator.IntegrationTest(ctx, screen); ok {
		suite.Tests = append(suite.Tests, it)
	}

	byID := make(map[string]*domain.Component, len(screen.Components))
	for i := range screen.Components {
		byID[screen.Components[i].ID] = &screen.Components[i]
	}
	for _, t := range suite.Tests {
		var c *domain.Component
		if t.Kind != domain.KindIntegration {
			c = byID[t.ComponentID]
		}
		suite.Issues = append(suite.Issues, s.checker.Check(ctx, t, c)...)
	}
	suite.CountStats()

	if err := s.remember(ctx, screen, suite.Tests); err != nil {
		s.logger.Warn("storing generated patterns failed", zap.Error(err))
	}
	suite.Duration = time.Since(start)
	s.logger.Info("suite generated",
		zap.String("screen", screen.Name),
		zap.String("run", suite.RunID),
		zap.Int("tests", suite.Stats.Total),
		zap.Int("adapted", suite.Stats.Adapted),
		zap.Int("issues", len(suite.Issues)),
		zap.Duration("took", suite.Duration))
	return suite, nil
}

// component produces the main test of c and its edge-case tests.
func (s *Service) component(ctx context.Context, c domain.Component, strategies []string) ([]domain.GeneratedTest, error) {
	matches, err := s.Similar(ctx, c, s.cfg.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("pattern search failed", zap.String("component", c.ID), zap.Error(err))
	}

	var main domain.GeneratedTest
	var edgeCases []string
	if best, ok := bestMatch(matches); ok && best.Score > s.cfg.SimilarityThreshold && best.Pattern.Template != "" {
		main = s.generator.Adapt(best, c)
		edgeCases = s.generator.EdgeCases(ctx, c)
		s.logger.Debug("adapted stored pattern",
			zap.String("component", c.ID),
			zap.String("pattern", best.Pattern.ID),
			zap.Float64("score", best.Score))
	} else {
		main = s.generator.GenerateForComponent(ctx, c, strategies...)
		edgeCases = main.EdgeCases
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	tests := []domain.GeneratedTest{main}
	for i, e := range edgeCases {
		if i >= s.cfg.EdgeCasesPerComponent {
			break
		}
		tests = append(tests, s.generator.EdgeCaseTest(ctx, c, e, i+1))
	}
	return tests, nil
}

func bestMatch(matches []domain.Match) (domain.Match, bool) {
	if len(matches) == 0 {
		return domain.Match{}, false
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score {
			best = m
		}
	}
	return best, true
}

// remember stores the model-written main tests as patterns with the component id and the
// page URL turned back into slots.
func (s *Service) remember(ctx context.Context, screen domain.Screen, tests []domain.GeneratedTest) error {
	byID := make(map[string]domain.Component, len(screen.Components))
	for _, c := range screen.Components {
		byID[c.ID] = c
	}
	var patterns []domain.Pattern
	for _, t := range tests {
		if !t.AIGenerated || t.Kind != domain.KindFunctional {
			continue
		}
		c, ok := byID[t.ComponentID]
		if !ok {
			continue
		}
		patterns = append(patterns, GeneratedPattern(t, c))
	}
	if len(patterns) == 0 {
		return nil
	}
	return s.upsert(ctx, patterns)
}

// GeneratedPattern turns a model-written test for c back into a reusable pattern.
func GeneratedPattern(t domain.GeneratedTest, c domain.Component) domain.Pattern {
	tmpl := t.Code
	if c.URL != "" {
		tmpl = strings.ReplaceAll(tmpl, c.URL, "{url}")
	}
	tmpl = restoreIDSlot(tmpl, c.ID)
	return domain.Pattern{
		ID:            "generated_" + generator.PyIdent(c.Type) + "_" + generator.PyIdent(c.ID),
		ComponentType: c.Type,
		Description:   t.Description,
		Template:      tmpl,
		Tags:          append([]string{c.Type, "ai_generated"}, pattern.StrategiesFor(c.Type)...),
		Complexity:    "medium",
		Source:        domain.SourceGenerated,
		AIGenerated:   true,
	}
}

// restoreIDSlot puts {component_id} back where code refers to id as a whole string
// literal or as the test function name. Attribute values such as [type="id"] and
// other substrings are left alone.
func restoreIDSlot(code, id string) string {
	if id == "" {
		return code
	}
	q := regexp.QuoteMeta(id)
	literal := regexp.MustCompile(`(^|[^=\w])(?:"` + q + `"|'` + q + `')`)
	code = literal.ReplaceAllStringFunc(code, func(m string) string {
		quote := m[len(m)-1:]
		return m[:len(m)-len(id)-2] + quote + "{component_id}" + quote
	})
	name := regexp.MustCompile(`\btest_` + regexp.QuoteMeta(generator.PyIdent(id)) + `_`)
	return name.ReplaceAllString(code, "test_{component_id}_")
}
