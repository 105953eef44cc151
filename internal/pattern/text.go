package pattern

import (
	"encoding/json"
	"fmt"
	"strings"

	"uitestgen/internal/domain"
)

// EmbeddingText is the text embedded for a stored pattern.
func EmbeddingText(p domain.Pattern) string {
	return fmt.Sprintf("%s %s %s %s", p.Description, p.ComponentType, strings.Join(p.Tags, " "), p.Template)
}

// QueryText is the text embedded to search patterns for a component.
func QueryText(c domain.Component) string {
	return fmt.Sprintf("%s %s %s", c.Type, c.ID, PropertiesJSON(c, "id", "type"))
}

// PropertiesJSON renders the component fields as JSON, leaving out skip.
// Keys are sorted by encoding/json.
func PropertiesJSON(c domain.Component, skip ...string) string {
	props := make(map[string]any, len(c.Properties))
	for k, v := range c.Properties {
		props[k] = v
	}
	for _, k := range skip {
		delete(props, k)
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(data)
}
