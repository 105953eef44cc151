package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"uitestgen/internal/domain"
)

// fileEntry is one pattern in a patterns JSON file.
type fileEntry struct {
	ID            string   `json:"id"`
	ComponentType string   `json:"component_type"`
	Description   string   `json:"description"`
	Template      string   `json:"template"`
	Tags          []string `json:"tags"`
	Complexity    string   `json:"complexity"`
}

// LoadFile reads a JSON array of patterns. Every entry needs an id, a component type and a
// template with a test function.
func LoadFile(path string) ([]domain.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := make([]domain.Pattern, 0, len(entries))
	for i, e := range entries {
		switch {
		case e.ID == "":
			return nil, fmt.Errorf("%s: pattern %d has no id", path, i)
		case e.ComponentType == "":
			return nil, fmt.Errorf("%s: pattern %q has no component_type", path, e.ID)
		case !strings.Contains(e.Template, "def test_"):
			return nil, fmt.Errorf("%s: pattern %q has no test function", path, e.ID)
		}
		complexity := e.Complexity
		if complexity == "" {
			complexity = "medium"
		}
		tags := e.Tags
		if len(tags) == 0 {
			tags = []string{e.ComponentType}
		}
		out = append(out, domain.Pattern{
			ID:            e.ID,
			ComponentType: e.ComponentType,
			Description:   e.Description,
			Template:      e.Template,
			Tags:          tags,
			Complexity:    complexity,
			Source:        domain.SourceSeed,
		})
	}
	return out, nil
}
