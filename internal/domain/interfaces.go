package domain

// Component is a single UI component read from a schema file.
// The pipeline never mutates it.
type Component struct {
	ID           string
	Type         string
	URL          string
	RequiresAuth bool
	// Properties holds every raw field of the component, including id and type.
	Properties map[string]any
}

// Screen is one UI schema file: a named screen and its components in file order.
type Screen struct {
	Name       string
	Source     string
	Components []Component
}

// Pattern sources.
const (
	SourceSeed      = "seed"
	SourceGenerated = "generated"
	SourceExternal  = "external"
)

// Pattern is a stored pairing of a component description with a test template.
// Template may contain {component_id}, {url}, {endpoint_url}, {auth_token} and {base_url} slots.
type Pattern struct {
	ID            string
	ComponentType string
	Description   string
	Template      string
	Tags          []string
	Complexity    string
	Source        string
	AIGenerated   bool
}

// Match is a pattern returned by similarity search.
type Match struct {
	Pattern Pattern
	Score   float64
}

// TestKind classifies a generated test.
type TestKind string

const (
	KindFunctional  TestKind = "functional"
	KindAdapted     TestKind = "adapted"
	KindEdgeCase    TestKind = "edge_case"
	KindIntegration TestKind = "integration"
	KindFallback    TestKind = "fallback"
)

// GeneratedTest is one test function produced for a component or a screen.
type GeneratedTest struct {
	Name          string
	Code          string
	Description   string
	ComponentID   string
	ComponentType string
	Kind          TestKind
	Generator     string
	AIGenerated   bool
	AdaptedFrom   string
	Similarity    float64
	RequiresAuth  bool
	EdgeCases     []string
}

// Issue is a problem found in a generated test by the acceptance checks.
type Issue struct {
	Test    string
	Check   string
	Message string
}

// SuiteStats counts tests by how they were produced.
type SuiteStats struct {
	Total       int
	AIGenerated int
	Adapted     int
	Fallback    int
	EdgeCase    int
	Integration int
}

// Suite is the output of one pipeline run over a screen.
type Suite struct {
	Screen Screen
	Tests  []GeneratedTest
	Issues []Issue
	Stats  SuiteStats
}

// CountStats recomputes Stats from Tests.
func (s *Suite) CountStats() {
	st := SuiteStats{Total: len(s.Tests)}
	for _, t := range s.Tests {
		if t.AIGenerated {
			st.AIGenerated++
		}
		switch t.Kind {
		case KindAdapted:
			st.Adapted++
		case KindFallback:
			st.Fallback++
		case KindEdgeCase:
			st.EdgeCase++
		case KindIntegration:
			st.Integration++
		}
	}
	s.Stats = st
}
