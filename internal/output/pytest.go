// Package output renders test suites as pytest files and exports run results.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/generator"
)

var topLevelTest = regexp.MustCompile(`^def (test_\w*)\s*\((.*)$`)

// RenderPytest renders s as a pytest module with one test class for the screen.
func RenderPytest(s domain.Suite, baseURL string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\"\"\"\nGenerated UI tests for the %s screen.\n\n", s.Screen.Name)
	fmt.Fprintf(&b, "Generated by uitestgen on %s from %s.\n", at.UTC().Format(time.RFC3339), sourceName(s.Screen))
	fmt.Fprintf(&b, "Components: %d. Tests: %d (AI generated %d, adapted %d, edge cases %d, integration %d).\n\"\"\"\n\n",
		len(s.Screen.Components), s.Stats.Total, s.Stats.AIGenerated, s.Stats.Adapted, s.Stats.EdgeCase, s.Stats.Integration)
	for _, imp := range generator.Imports() {
		b.WriteString(imp + "\n")
	}

	fmt.Fprintf(&b, "\n\nclass %s:\n", ClassName(s.Screen.Name))
	fmt.Fprintf(&b, "    \"\"\"Test suite for the %s screen.\"\"\"\n\n", s.Screen.Name)
	b.WriteString("    def setup_method(self):\n")
	fmt.Fprintf(&b, "        self.base_url = %q\n", baseURL)
	b.WriteString("        self.driver = None\n\n")
	b.WriteString("    def teardown_method(self):\n")
	b.WriteString("        if self.driver is not None:\n")
	b.WriteString("            self.driver.quit()\n")

	issues := map[string][]domain.Issue{}
	for _, i := range s.Issues {
		issues[i.Test] = append(issues[i.Test], i)
	}
	for _, t := range s.Tests {
		if strings.TrimSpace(t.Code) == "" {
			continue
		}
		b.WriteString("\n")
		for _, line := range metadata(t, issues[t.Name]) {
			b.WriteString("    # " + line + "\n")
		}
		b.WriteString(indent(Methodize(t.Code), "    "))
		b.WriteString("\n")
	}
	return b.String()
}

// Methodize turns every top-level test function in code into a method taking self.
func Methodize(code string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		m := topLevelTest.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		rest := m[2]
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		switch {
		case strings.HasPrefix(trimmed, "self"):
			continue
		case strings.HasPrefix(trimmed, ")"):
			lines[i] = "def " + m[1] + "(self" + trimmed
		default:
			lines[i] = "def " + m[1] + "(self, " + trimmed
		}
	}
	return strings.Join(lines, "\n")
}

// ClassName is the pytest class name for a screen.
func ClassName(screen string) string {
	var b strings.Builder
	b.WriteString("Test")
	upper := true
	for _, r := range screen {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FileName is the pytest file name for a screen.
func FileName(screen string) string {
	return "test_" + generator.PyIdent(screen) + ".py"
}

func metadata(t domain.GeneratedTest, issues []domain.Issue) []string {
	var out []string
	if t.Description != "" {
		out = append(out, t.Description)
	}
	if t.AIGenerated {
		out = append(out, "AI-generated by "+t.Generator)
	}
	if t.AdaptedFrom != "" {
		out = append(out, fmt.Sprintf("Adapted from pattern %s, similarity score: %.3f", t.AdaptedFrom, t.Similarity))
	}
	for _, i := range issues {
		out = append(out, fmt.Sprintf("WARNING (%s): %s", i.Check, i.Message))
	}
	return out
}

func indent(code, prefix string) string {
	lines := strings.Split(code, "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func sourceName(s domain.Screen) string {
	if s.Source == "" {
		return "an inline schema"
	}
	return filepath.Base(s.Source)
}

// Writer writes suites below a directory.
type Writer struct {
	dir     string
	baseURL string
	now     func() time.Time
	logger  *zap.Logger
}

// NewWriter returns a Writer for dir.
func NewWriter(dir, baseURL string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, baseURL: baseURL, now: time.Now, logger: logger}
}

// Write renders s to <dir>/test_<screen>.py and returns the path.
func (w *Writer) Write(s domain.Suite) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.dir, FileName(s.Screen.Name))
	if err := os.WriteFile(path, []byte(RenderPytest(s, w.baseURL, w.now())), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.logger.Info("test file written",
		zap.String("path", path),
		zap.Int("tests", s.Stats.Total),
		zap.Int("issues", len(s.Issues)))
	return path, nil
}
