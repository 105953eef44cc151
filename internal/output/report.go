package output

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"

	"uitestgen/internal/domain"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatJUnit    = "junit"
	FormatMarkdown = "markdown"
)

// Formats lists the supported export formats.
func Formats() []string {
	return []string{FormatJSON, FormatCSV, FormatJUnit, FormatMarkdown}
}

// Coverage reports how many components of a screen have at least one test.
type Coverage struct {
	Components int            `json:"components"`
	Covered    int            `json:"covered"`
	Percent    float64        `json:"percent"`
	Uncovered  []string       `json:"uncovered,omitempty"`
	ByKind     map[string]int `json:"by_kind"`
}

// ComputeCoverage measures tests against screen. It fails with domain.ErrNoTests when tests is empty.
func ComputeCoverage(screen domain.Screen, tests []domain.GeneratedTest) (Coverage, error) {
	if len(tests) == 0 {
		return Coverage{}, fmt.Errorf("coverage of %s: %w", screen.Name, domain.ErrNoTests)
	}
	tested := map[string]bool{}
	cov := Coverage{Components: len(screen.Components), ByKind: map[string]int{}}
	for _, t := range tests {
		cov.ByKind[string(t.Kind)]++
		if t.ComponentID != "" {
			tested[t.ComponentID] = true
		}
	}
	for _, c := range screen.Components {
		if tested[c.ID] {
			cov.Covered++
		} else {
			cov.Uncovered = append(cov.Uncovered, c.ID)
		}
	}
	if cov.Components > 0 {
		cov.Percent = float64(cov.Covered) / float64(cov.Components) * 100
	}
	return cov, nil
}

// Export writes runs to w in format. The json and markdown formats include the review.
func Export(w io.Writer, runs []Run, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return exportJSON(w, runs)
	case FormatCSV:
		return exportCSV(w, Suites(runs))
	case FormatJUnit:
		return exportJUnit(w, Suites(runs))
	case FormatMarkdown, "md":
		_, err := io.WriteString(w, RenderMarkdown(runs))
		return err
	default:
		return fmt.Errorf("%w: %q (want one of %s)", domain.ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
	}
}

type jsonTest struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	ComponentID   string   `json:"component_id,omitempty"`
	ComponentType string   `json:"component_type,omitempty"`
	Description   string   `json:"description,omitempty"`
	Generator     string   `json:"generator"`
	AIGenerated   bool     `json:"ai_generated"`
	AdaptedFrom   string   `json:"adapted_from,omitempty"`
	Similarity    float64  `json:"similarity_score,omitempty"`
	RequiresAuth  bool     `json:"requires_auth"`
	EdgeCases     []string `json:"edge_cases,omitempty"`
	Code          string   `json:"test_code"`
}

type jsonIssue struct {
	Test    string `json:"test"`
	Check   string `json:"check"`
	Message string `json:"message"`
}

type jsonSuite struct {
	Screen   string            `json:"screen"`
	Source   string            `json:"source,omitempty"`
	Stats    domain.SuiteStats `json:"stats"`
	Coverage *Coverage         `json:"coverage,omitempty"`
	Tests    []jsonTest        `json:"tests"`
	Issues   []jsonIssue       `json:"issues,omitempty"`
	Review   *jsonReview       `json:"review,omitempty"`
}

func exportJSON(w io.Writer, runs []Run) error {
	out := make([]jsonSuite, 0, len(runs))
	for _, r := range runs {
		s := r.Suite
		js := jsonSuite{Screen: s.Screen.Name, Source: s.Screen.Source, Stats: s.Stats, Tests: []jsonTest{}, Review: reviewJSON(r.Review)}
		if cov, err := ComputeCoverage(s.Screen, s.Tests); err == nil {
			js.Coverage = &cov
		}
		for _, t := range s.Tests {
			js.Tests = append(js.Tests, jsonTest{
				Name:          t.Name,
				Kind:          string(t.Kind),
				ComponentID:   t.ComponentID,
				ComponentType: t.ComponentType,
				Description:   t.Description,
				Generator:     t.Generator,
				AIGenerated:   t.AIGenerated,
				AdaptedFrom:   t.AdaptedFrom,
				Similarity:    t.Similarity,
				RequiresAuth:  t.RequiresAuth,
				EdgeCases:     t.EdgeCases,
				Code:          t.Code,
			})
		}
		for _, i := range s.Issues {
			js.Issues = append(js.Issues, jsonIssue(i))
		}
		out = append(out, js)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func exportCSV(w io.Writer, suites []domain.Suite) error {
	cw := csv.NewWriter(w)
	header := []string{"screen", "test", "kind", "component_id", "component_type", "generator", "ai_generated", "adapted_from", "similarity", "requires_auth", "issues"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range suites {
		counts := issueCounts(s.Issues)
		for _, t := range s.Tests {
			sim := ""
			if t.AdaptedFrom != "" {
				sim = strconv.FormatFloat(t.Similarity, 'f', 3, 64)
			}
			row := []string{
				s.Screen.Name, t.Name, string(t.Kind), t.ComponentID, t.ComponentType, t.Generator,
				strconv.FormatBool(t.AIGenerated), t.AdaptedFrom, sim, strconv.FormatBool(t.RequiresAuth),
				strconv.Itoa(counts[t.Name]),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name     string      `xml:"name,attr"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Cases    []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// exportJUnit reports each generated test as a case; verification issues become failures.
func exportJUnit(w io.Writer, suites []domain.Suite) error {
	root := junitSuites{}
	for _, s := range suites {
		byTest := map[string][]domain.Issue{}
		for _, i := range s.Issues {
			byTest[i.Test] = append(byTest[i.Test], i)
		}
		js := junitSuite{Name: s.Screen.Name, Tests: len(s.Tests)}
		for _, t := range s.Tests {
			jc := junitCase{Name: t.Name, ClassName: ClassName(s.Screen.Name), SystemOut: t.Description}
			if iss := byTest[t.Name]; len(iss) > 0 {
				msgs := make([]string, len(iss))
				for k, i := range iss {
					msgs[k] = i.Check + ": " + i.Message
				}
				jc.Failure = &junitFailure{Message: iss[0].Message, Type: iss[0].Check, Body: strings.Join(msgs, "\n")}
				js.Failures++
			}
			js.Cases = append(js.Cases, jc)
		}
		root.Tests += js.Tests
		root.Failures += js.Failures
		root.Suites = append(root.Suites, js)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(root); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// RenderMarkdown summarises runs as a markdown report.
func RenderMarkdown(runs []Run) string {
	var b strings.Builder
	b.WriteString("# Test generation report\n")
	for _, r := range runs {
		s := r.Suite
		fmt.Fprintf(&b, "\n## %s\n\n", s.Screen.Name)
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Total tests | %d |\n", s.Stats.Total)
		fmt.Fprintf(&b, "| AI generated | %d |\n", s.Stats.AIGenerated)
		fmt.Fprintf(&b, "| Adapted from patterns | %d |\n", s.Stats.Adapted)
		fmt.Fprintf(&b, "| Template fallbacks | %d |\n", s.Stats.Fallback)
		fmt.Fprintf(&b, "| Edge case tests | %d |\n", s.Stats.EdgeCase)
		fmt.Fprintf(&b, "| Integration tests | %d |\n", s.Stats.Integration)
		if cov, err := ComputeCoverage(s.Screen, s.Tests); err == nil {
			fmt.Fprintf(&b, "| Component coverage | %.1f%% (%d/%d) |\n", cov.Percent, cov.Covered, cov.Components)
		}

		if len(s.Tests) > 0 {
			b.WriteString("\n| Test | Kind | Component | Generator |\n|---|---|---|---|\n")
			for _, t := range s.Tests {
				gen := t.Generator
				if t.AdaptedFrom != "" {
					gen = fmt.Sprintf("%s (%s, %.2f)", gen, t.AdaptedFrom, t.Similarity)
				}
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", t.Name, t.Kind, orDash(t.ComponentID), gen)
			}
		}
		if len(s.Issues) > 0 {
			b.WriteString("\n### Issues\n\n")
			for _, i := range s.Issues {
				fmt.Fprintf(&b, "- `%s` %s: %s\n", i.Test, i.Check, i.Message)
			}
		}
		writeReviewMarkdown(&b, r.Review)
	}
	return b.String()
}

// Pretty renders markdown for the terminal.
func Pretty(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}

func issueCounts(issues []domain.Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Test]++
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
