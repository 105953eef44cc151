package output

import (
	"fmt"
	"strings"

	"uitestgen/internal/agents"
	"uitestgen/internal/domain"
)

// Run is one generated suite together with the crew review of its screen.
// Review is nil when the screen was not reviewed.
type Run struct {
	Suite  domain.Suite
	Review *agents.Report
}

// Suites returns the suites of runs in order.
func Suites(runs []Run) []domain.Suite {
	out := make([]domain.Suite, len(runs))
	for i, r := range runs {
		out[i] = r.Suite
	}
	return out
}

type jsonValidation struct {
	ComponentID        string   `json:"component_id"`
	Valid              bool     `json:"valid"`
	Errors             []string `json:"errors,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
	AccessibilityScore int      `json:"accessibility_score"`
	DesignScore        int      `json:"design_score"`
	CrossPlatformScore int      `json:"cross_platform_score"`
}

type jsonAnalysis struct {
	ComponentID  string   `json:"component_id"`
	Method       string   `json:"method"`
	URL          string   `json:"url"`
	GraphQL      bool     `json:"graphql"`
	Complexity   string   `json:"complexity"`
	Errors       []string `json:"errors,omitempty"`
	Security     []string `json:"security,omitempty"`
	TestPatterns []string `json:"test_patterns,omitempty"`
}

type jsonDiscovery struct {
	ComponentID string   `json:"component_id"`
	Matches     []string `json:"matches,omitempty"`
	Synthesized []string `json:"synthesized,omitempty"`
	External    []string `json:"external,omitempty"`
}

type jsonReview struct {
	Summary     agents.Summary   `json:"summary"`
	Validations []jsonValidation `json:"validations"`
	Analyses    []jsonAnalysis   `json:"analyses,omitempty"`
	Discoveries []jsonDiscovery  `json:"discoveries,omitempty"`
}

func reviewJSON(r *agents.Report) *jsonReview {
	if r == nil {
		return nil
	}
	out := &jsonReview{Summary: r.Summary, Validations: []jsonValidation{}}
	for _, v := range r.Validations {
		out.Validations = append(out.Validations, jsonValidation{
			ComponentID:        v.ComponentID,
			Valid:              v.Valid,
			Errors:             v.Errors,
			Warnings:           v.Warnings,
			Recommendations:    v.Recommendations,
			AccessibilityScore: v.AccessibilityScore,
			DesignScore:        v.DesignScore,
			CrossPlatformScore: v.CrossPlatformScore,
		})
	}
	for _, a := range r.Analyses {
		ja := jsonAnalysis{
			ComponentID: a.ComponentID,
			Method:      a.Method,
			URL:         a.URL,
			GraphQL:     a.GraphQL,
			Complexity:  a.Complexity,
			Errors:      a.Errors,
			Security:    a.Security,
		}
		for _, tp := range a.TestPatterns {
			ja.TestPatterns = append(ja.TestPatterns, tp.Name)
		}
		out.Analyses = append(out.Analyses, ja)
	}
	for _, d := range r.Discoveries {
		jd := jsonDiscovery{ComponentID: d.ComponentID}
		for _, m := range d.Matches {
			jd.Matches = append(jd.Matches, m.Pattern.ID)
		}
		for _, p := range d.Synthesized {
			jd.Synthesized = append(jd.Synthesized, p.ID)
		}
		for _, e := range d.External {
			jd.External = append(jd.External, e.Title)
		}
		out.Discoveries = append(out.Discoveries, jd)
	}
	return out
}

// writeReviewMarkdown appends the review section of one screen.
func writeReviewMarkdown(b *strings.Builder, r *agents.Report) {
	if r == nil {
		return
	}
	s := r.Summary
	b.WriteString("\n### Review\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Valid components | %d/%d |\n", s.Valid, s.Components)
	fmt.Fprintf(b, "| Warnings | %d |\n", s.Warnings)
	fmt.Fprintf(b, "| Avg accessibility score | %.1f |\n", s.AvgAccessibility)
	fmt.Fprintf(b, "| API endpoints | %d (%d GraphQL) |\n", s.Endpoints, s.GraphQLEndpoints)
	fmt.Fprintf(b, "| Security notes | %d |\n", s.SecurityNotes)
	fmt.Fprintf(b, "| Matched patterns | %d |\n", s.Matched)
	fmt.Fprintf(b, "| Synthesized patterns | %d |\n", s.Synthesized)
	fmt.Fprintf(b, "| External suggestions | %d |\n", s.ExternalSuggestion)

	var notes []string
	for _, v := range r.Validations {
		for _, e := range v.Errors {
			notes = append(notes, fmt.Sprintf("- `%s` invalid: %s", v.ComponentID, e))
		}
	}
	for _, a := range r.Analyses {
		for _, sec := range a.Security {
			notes = append(notes, fmt.Sprintf("- `%s` security: %s", a.ComponentID, sec))
		}
	}
	for _, d := range r.Discoveries {
		for _, e := range d.External {
			notes = append(notes, fmt.Sprintf("- `%s` external: %s (%s)", d.ComponentID, e.Title, orDash(e.URL)))
		}
	}
	if len(notes) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(notes, "\n"))
		b.WriteString("\n")
	}
}
