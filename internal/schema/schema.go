// Package schema loads JSON UI-schema files into screens and components.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"uitestgen/internal/domain"
)

// ErrInvalidSchema is wrapped by every schema validation failure.
var ErrInvalidSchema = errors.New("invalid ui schema")

// ValidationError is a single schema violation.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every violation found in one file.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrInvalidSchema }

const uiSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["components"],
  "properties": {
    "screen": {"type": "string"},
    "components": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "type": {"type": "string"},
          "url": {"type": "string"},
          "requires_auth": {"type": "boolean"}
        }
      }
    }
  }
}`

var compiled = mustCompile()

func mustCompile() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(uiSchema))
	if err != nil {
		panic(fmt.Sprintf("schema: compile ui schema: %v", err))
	}
	return s
}

// Load reads and validates one schema file.
func Load(path string) (domain.Screen, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Screen{}, err
	}
	screen, err := Parse(data)
	if err != nil {
		return domain.Screen{}, fmt.Errorf("%s: %w", path, err)
	}
	screen.Source = path
	if screen.Name == "" {
		screen.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return screen, nil
}

// Parse validates raw schema bytes and builds the screen.
// The screen name is left empty when the document carries none.
func Parse(data []byte) (domain.Screen, error) {
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.Screen{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if !result.Valid() {
		var verrs ValidationErrors
		for _, re := range result.Errors() {
			verrs = append(verrs, ValidationError{Field: re.Field(), Message: re.Description()})
		}
		return domain.Screen{}, verrs
	}

	var doc struct {
		Screen     string           `json:"screen"`
		Components []map[string]any `json:"components"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Screen{}, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	screen := domain.Screen{Name: doc.Screen}
	for _, raw := range doc.Components {
		screen.Components = append(screen.Components, component(raw))
	}
	return screen, nil
}

func component(raw map[string]any) domain.Component {
	c := domain.Component{Properties: raw}
	c.Type, _ = raw["type"].(string)
	if c.Type == "" {
		c.Type = "unknown"
	}
	c.ID, _ = raw["id"].(string)
	if c.ID == "" {
		c.ID = "unknown_" + c.Type
	}
	c.URL, _ = raw["url"].(string)
	c.RequiresAuth, _ = raw["requires_auth"].(bool)
	return c
}

// Expand resolves the input patterns to a sorted, de-duplicated list of .json paths.
func Expand(patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			matches = []string{pattern}
		}
		for _, m := range matches {
			if !strings.EqualFold(filepath.Ext(m), ".json") {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, domain.ErrNoSchemas
	}
	sort.Strings(paths)
	return paths, nil
}
