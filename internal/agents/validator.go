// Package agents reviews a screen before tests are written: component validation, API
// endpoint analysis and pattern discovery, run together by a Crew.
package agents

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/pattern"
)

const minTouchTarget = 44

// Validation is the verdict on one component.
type Validation struct {
	ComponentID        string
	ComponentType      string
	Valid              bool
	Errors             []string
	Warnings           []string
	Recommendations    []string
	AccessibilityScore int
	DesignScore        int
	CrossPlatformScore int
}

func (v *Validation) errorf(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) warnf(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v *Validation) recommend(s string) {
	v.Recommendations = append(v.Recommendations, s)
}

// Validator checks components against design, accessibility and cross-platform rules.
type Validator struct {
	logger *zap.Logger
}

// NewValidator returns a Validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Validate scores c. Every score starts at 100; Valid means no errors were found.
func (v *Validator) Validate(c domain.Component) Validation {
	res := Validation{
		ComponentID:        c.ID,
		ComponentType:      c.Type,
		AccessibilityScore: 100,
		DesignScore:        100,
		CrossPlatformScore: 100,
	}
	p := props(c.Properties)

	for _, f := range pattern.MissingFields(c) {
		res.errorf("Missing required field: %s", f)
		res.DesignScore -= 10
	}

	switch c.Type {
	case "button":
		if !p.has("text") && !p.has("icon") && !p.has("label") {
			res.errorf("Button must have either text or icon")
			res.DesignScore -= 15
		}
	case "list":
		if _, ok := c.Properties["items"]; !ok {
			res.errorf("List component must have 'items' property")
			res.DesignScore -= 20
		}
		if !p.has("empty_state_message") {
			res.recommend("Consider adding empty state message")
		}
	case "card":
		if !p.has("title") && !p.has("content") {
			res.warnf("Card should have title or content for clarity")
			res.DesignScore -= 10
		}
	case "modal":
		if !p.truthy("closable") && !p.truthy("dismissible") && !p.has("close_button") {
			res.errorf("Modal must be dismissible or have close button")
			res.AccessibilityScore -= 20
		}
		if !p.has("title") {
			res.recommend("Give the modal a title for screen readers")
		}
	case "form":
		if _, ok := c.Properties["validation"]; !ok {
			res.recommend("Consider adding input validation")
		}
		if !p.has("submit_button") && !p.has("on_submit") && !p.has("action") {
			res.warnf("Form should have clear submit mechanism")
		}
	}

	// accessibility
	if !p.has("accessibility_label") && !p.has("label") && !p.has("aria_label") {
		res.warnf("Missing accessibility label for screen readers")
		res.AccessibilityScore -= 15
	}
	interactive := c.Type == "button" || c.Type == "input" || c.Type == "select"
	if interactive && !p.has("role") {
		res.warnf("Missing semantic role for assistive technology")
		res.AccessibilityScore -= 10
	}
	bg, fg := strings.ToLower(p.str("background_color")), strings.ToLower(p.str("text_color"))
	switch {
	case isWhite(bg) && isWhite(fg):
		res.errorf("Insufficient color contrast: white text on white background")
		res.AccessibilityScore -= 25
	case isBlack(bg) && isBlack(fg):
		res.errorf("Insufficient color contrast: black text on black background")
		res.AccessibilityScore -= 25
	}
	if interactive {
		for _, dim := range []string{"width", "height"} {
			if n, ok := p.num(dim); ok && n > 0 && n < minTouchTarget {
				res.warnf("Touch target %s (%gpx) below recommended minimum (%dpx)", dim, n, minTouchTarget)
				res.AccessibilityScore -= 10
			}
		}
	}

	// cross-platform
	iosOnly := p.has("ios_style") || p.has("cupertino_style")
	androidOnly := p.has("material_style") || p.has("android_style")
	switch {
	case iosOnly && androidOnly:
		res.warnf("Component has both iOS and Android specific styles")
		res.CrossPlatformScore -= 10
	case iosOnly || androidOnly:
		res.recommend("Consider using cross-platform styling for consistency")
		res.CrossPlatformScore -= 5
	}
	for _, dim := range []string{"width", "height"} {
		if strings.HasSuffix(strings.TrimSpace(p.str(dim)), "px") {
			res.recommend(fmt.Sprintf("Fixed pixel %s may not scale across screen densities", dim))
			res.CrossPlatformScore -= 5
			break
		}
	}
	if c.Type == "list" || c.Type == "card" || c.Type == "image" {
		for _, g := range p.strs("supported_gestures") {
			if g == "force_touch" || g == "3d_touch" || g == "long_press_drag" {
				res.recommend("Platform-specific gestures may affect cross-platform consistency")
				res.CrossPlatformScore -= 5
				break
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	v.logger.Debug("component validated",
		zap.String("component", c.ID),
		zap.Bool("valid", res.Valid),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)))
	return res
}

func isWhite(s string) bool { return s == "white" || s == "#ffffff" || s == "#fff" }
func isBlack(s string) bool { return s == "black" || s == "#000000" || s == "#000" }

// props reads loosely typed schema properties.
type props map[string]any

// has reports a present, non-empty value.
func (p props) has(k string) bool {
	v, ok := p[k]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	case bool:
		return t
	}
	return true
}

func (p props) truthy(k string) bool {
	b, ok := p[k].(bool)
	return ok && b
}

func (p props) str(k string) string {
	s, _ := p[k].(string)
	return s
}

func (p props) num(k string) (float64, bool) {
	switch n := p[k].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func (p props) strs(k string) []string {
	raw, _ := p[k].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
