package agents

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"uitestgen/internal/domain"
)

// Summary aggregates a Report.
type Summary struct {
	Components         int     `json:"components"`
	Valid              int     `json:"valid"`
	Invalid            int     `json:"invalid"`
	Warnings           int     `json:"warnings"`
	AvgAccessibility   float64 `json:"avg_accessibility"`
	Endpoints          int     `json:"endpoints"`
	GraphQLEndpoints   int     `json:"graphql_endpoints"`
	SecurityNotes      int     `json:"security_notes"`
	Matched            int     `json:"matched"`
	Synthesized        int     `json:"synthesized"`
	ExternalSuggestion int     `json:"external_suggestions"`
}

// Report is the crew's review of a screen, indexed like the screen's components.
type Report struct {
	Screen      string
	Validations []Validation
	// Analyses has one entry per api_endpoint component, in schema order.
	Analyses    []Analysis
	Discoveries []Discovery
	Summary     Summary
}

// Crew runs the validator, analyzer and discoverer over every component of a screen.
type Crew struct {
	validator   *Validator
	analyzer    *Analyzer
	discoverer  *Discoverer
	concurrency int
	logger      *zap.Logger
}

// NewCrew returns a Crew. discoverer may be nil to skip discovery.
func NewCrew(v *Validator, a *Analyzer, d *Discoverer, concurrency int, logger *zap.Logger) *Crew {
	if concurrency <= 0 {
		concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crew{validator: v, analyzer: a, discoverer: d, concurrency: concurrency, logger: logger}
}

// Run reviews screen. Discovery failures for single components are logged; only
// cancellation aborts the run.
func (c *Crew) Run(ctx context.Context, screen domain.Screen) (Report, error) {
	n := len(screen.Components)
	validations := make([]Validation, n)
	analyses := make([]*Analysis, n)
	discoveries := make([]Discovery, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, comp := range screen.Components {
		g.Go(func() error {
			validations[i] = c.validator.Validate(comp)
			if comp.Type == "api_endpoint" {
				a := c.analyzer.Analyze(comp)
				analyses[i] = &a
			}
			discoveries[i] = Discovery{ComponentID: comp.ID}
			if c.discoverer == nil {
				return nil
			}
			d, err := c.discoverer.Discover(gctx, comp)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("pattern discovery failed", zap.String("component", comp.ID), zap.Error(err))
				return nil
			}
			discoveries[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	r := Report{Screen: screen.Name, Validations: validations, Discoveries: discoveries}
	for _, a := range analyses {
		if a != nil {
			r.Analyses = append(r.Analyses, *a)
		}
	}
	r.Summary = summarize(r)
	c.logger.Info("crew review finished",
		zap.String("screen", screen.Name),
		zap.Int("valid", r.Summary.Valid),
		zap.Int("invalid", r.Summary.Invalid),
		zap.Int("endpoints", r.Summary.Endpoints))
	return r, nil
}

func summarize(r Report) Summary {
	s := Summary{Components: len(r.Validations), Endpoints: len(r.Analyses)}
	total := 0
	for _, v := range r.Validations {
		if v.Valid {
			s.Valid++
		} else {
			s.Invalid++
		}
		s.Warnings += len(v.Warnings)
		total += v.AccessibilityScore
	}
	if s.Components > 0 {
		s.AvgAccessibility = float64(total) / float64(s.Components)
	}
	for _, a := range r.Analyses {
		if a.GraphQL {
			s.GraphQLEndpoints++
		}
		s.SecurityNotes += len(a.Security)
	}
	for _, d := range r.Discoveries {
		s.Matched += len(d.Matches)
		s.Synthesized += len(d.Synthesized)
		s.ExternalSuggestion += len(d.External)
	}
	return s
}
