// Package pattern turns UI components into test patterns and holds the built-in pattern library.
package pattern

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"uitestgen/internal/domain"
)

// ErrMissingFields is wrapped when a supported component lacks a required field.
var ErrMissingFields = errors.New("missing required fields")

// ComponentPattern is the normalised view of a component used by the generators.
type ComponentPattern struct {
	ID         string
	Type       string
	Properties map[string]any
	Strategies []string
	// Generic is set for component types without dedicated handling.
	Generic bool
}

type typeSpec struct {
	required   []string
	defaults   map[string]any
	strategies []string
}

var specs = map[string]typeSpec{
	"button": {
		required:   []string{"id", "action"},
		defaults:   map[string]any{"action": nil, "text": ""},
		strategies: []string{"click_interaction", "state_validation", "accessibility_check"},
	},
	"webview": {
		required:   []string{"id", "url"},
		defaults:   map[string]any{"url": nil, "content_type": "html"},
		strategies: []string{"load_validation", "content_check", "performance_test"},
	},
	"list": {
		required:   []string{"id", "items"},
		defaults:   map[string]any{"items": []any{}, "scroll_direction": "vertical"},
		strategies: []string{"scroll_test", "item_interaction", "performance_test"},
	},
	"api_endpoint": {
		required:   []string{"id", "url", "method"},
		defaults:   map[string]any{"url": nil, "method": nil, "headers": map[string]any{}},
		strategies: []string{"response_validation", "error_handling", "performance_test"},
	},
	"card": {
		required:   []string{"id", "content"},
		defaults:   map[string]any{"content": nil, "layout": "standard"},
		strategies: []string{"content_validation", "interaction_test", "layout_check"},
	},
	"modal": {
		required:   []string{"id", "title"},
		defaults:   map[string]any{"title": nil, "closable": true},
		strategies: []string{"show_hide_test", "interaction_test", "accessibility_check"},
	},
	"navigation": {
		required:   []string{"id", "items"},
		defaults:   map[string]any{"items": []any{}, "orientation": "horizontal"},
		strategies: []string{"item_selection", "state_validation", "accessibility_check"},
	},
	"form": {
		required:   []string{"id", "fields"},
		defaults:   map[string]any{"fields": []any{}, "validation": map[string]any{}},
		strategies: []string{"input_validation", "submission_test", "error_handling"},
	},
	"image": {
		required:   []string{"id", "src"},
		defaults:   map[string]any{"src": nil, "alt_text": ""},
		strategies: []string{"load_validation", "accessibility_check", "responsive_test"},
	},
	"video": {
		required:   []string{"id", "src"},
		defaults:   map[string]any{"src": nil, "controls": true},
		strategies: []string{"playback_test", "controls_test", "performance_test"},
	},
	"chart": {
		required:   []string{"id", "data"},
		defaults:   map[string]any{"data": nil, "chart_type": "line"},
		strategies: []string{"data_rendering", "interaction_test", "responsive_test"},
	},
	"map": {
		required:   []string{"id", "coordinates"},
		defaults:   map[string]any{"coordinates": nil, "zoom_level": 10},
		strategies: []string{"location_display", "interaction_test", "performance_test"},
	},
}

var genericStrategies = []string{"basic_rendering", "visibility_check"}

// Supported reports whether t has dedicated extraction rules.
func Supported(t string) bool {
	_, ok := specs[t]
	return ok
}

// SupportedTypes returns the component types with dedicated rules, sorted.
func SupportedTypes() []string {
	out := make([]string, 0, len(specs))
	for t := range specs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// RequiredFields returns the fields a component of type t must carry.
func RequiredFields(t string) []string {
	return append([]string(nil), specs[t].required...)
}

// StrategiesFor returns the recommended test strategies for a component type.
func StrategiesFor(t string) []string {
	if s, ok := specs[t]; ok {
		return append([]string(nil), s.strategies...)
	}
	return append([]string(nil), genericStrategies...)
}

// Vocabulary returns the supported component types and every test strategy, sorted.
func Vocabulary() []string {
	seen := map[string]struct{}{}
	for _, s := range genericStrategies {
		seen[s] = struct{}{}
	}
	for t, spec := range specs {
		seen[t] = struct{}{}
		for _, s := range spec.strategies {
			seen[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Extractor validates components and derives their patterns.
type Extractor struct{}

// NewExtractor returns an Extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns one pattern per component in schema order.
// The first supported component with missing required fields aborts the screen.
func (e *Extractor) Extract(screen domain.Screen) ([]ComponentPattern, error) {
	out := make([]ComponentPattern, 0, len(screen.Components))
	for _, c := range screen.Components {
		p, err := e.ExtractComponent(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ExtractComponent derives the pattern of a single component.
func (e *Extractor) ExtractComponent(c domain.Component) (ComponentPattern, error) {
	spec, ok := specs[c.Type]
	if !ok {
		props := make(map[string]any, len(c.Properties))
		for k, v := range c.Properties {
			props[k] = v
		}
		return ComponentPattern{
			ID:         c.ID,
			Type:       c.Type,
			Properties: props,
			Strategies: StrategiesFor(c.Type),
			Generic:    true,
		}, nil
	}

	if missing := MissingFields(c); len(missing) > 0 {
		return ComponentPattern{}, fmt.Errorf("%w for %s %q: %s", ErrMissingFields, c.Type, c.ID, strings.Join(missing, ", "))
	}

	props := make(map[string]any, len(spec.defaults))
	for field, def := range spec.defaults {
		if v, ok := c.Properties[field]; ok {
			props[field] = v
		} else {
			props[field] = def
		}
	}
	return ComponentPattern{
		ID:         c.ID,
		Type:       c.Type,
		Properties: props,
		Strategies: StrategiesFor(c.Type),
	}, nil
}

// MissingFields lists the required fields absent from a supported component.
func MissingFields(c domain.Component) []string {
	var missing []string
	for _, f := range specs[c.Type].required {
		if _, ok := c.Properties[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}
