// Package verify runs acceptance checks over generated pytest code.
package verify

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"uitestgen/internal/domain"
)

// Check names reported in domain.Issue.Check.
const (
	CheckEmpty       = "empty"
	CheckPlaceholder = "placeholder"
	CheckMock        = "mock"
	CheckComponentID = "component_id"
	CheckName        = "name"
	CheckSyntax      = "syntax"
)

var (
	slotPattern = regexp.MustCompile(`\{(component_id|url|endpoint_url|auth_token|base_url)\}`)
	mockPattern = regexp.MustCompile(`\b(?:Magic)?Mock\(`)
)

// Checker parses python with tree-sitter. It is safe for concurrent use.
type Checker struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewChecker returns a Checker with the python grammar loaded.
func NewChecker() *Checker {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Checker{parser: parser}
}

// Check returns every problem found in test. c is the component under test, nil for
// screen-level tests.
func (k *Checker) Check(ctx context.Context, test domain.GeneratedTest, c *domain.Component) []domain.Issue {
	var issues []domain.Issue
	add := func(check, msg string) {
		issues = append(issues, domain.Issue{Test: test.Name, Check: check, Message: msg})
	}

	if strings.TrimSpace(test.Code) == "" {
		add(CheckEmpty, "test has no code")
		return issues
	}
	if slots := slotPattern.FindAllString(test.Code, -1); len(slots) > 0 {
		add(CheckPlaceholder, "unfilled template slots: "+strings.Join(dedup(slots), ", "))
	}
	if mockPattern.MatchString(test.Code) {
		add(CheckMock, "uses a placeholder mock object instead of the real element")
	}
	if c != nil && c.ID != "" && !strings.Contains(test.Code, c.ID) {
		add(CheckComponentID, fmt.Sprintf("does not reference component %q", c.ID))
	}
	if test.Name != "" && !strings.Contains(test.Code, "def "+test.Name+"(") {
		add(CheckName, fmt.Sprintf("does not define %s", test.Name))
	}
	if msg, ok := k.syntax(ctx, test.Code); !ok {
		add(CheckSyntax, msg)
	}
	return issues
}

// Syntax reports whether code parses as python, with the location of the first error.
func (k *Checker) Syntax(ctx context.Context, code string) error {
	if msg, ok := k.syntax(ctx, code); !ok {
		return fmt.Errorf("python syntax: %s", msg)
	}
	return nil
}

func (k *Checker) syntax(ctx context.Context, code string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	tree, err := k.parser.ParseCtx(ctx, nil, []byte(code))
	if err != nil {
		return "parse failed: " + err.Error(), false
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return "", true
	}
	if n := firstError(root); n != nil {
		p := n.StartPoint()
		return fmt.Sprintf("invalid syntax at line %d, column %d", p.Row+1, p.Column+1), false
	}
	return "invalid syntax", false
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if e := firstError(child); e != nil {
			return e
		}
	}
	return nil
}

func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
