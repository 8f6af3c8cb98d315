// Package catalog holds the building-element catalog model and the
// semantic deduplication applied to it.
package catalog

import "strings"

// Element is a catalog entry extracted from a building model. ElementID is
// the model's stable identifier (IFC GlobalId or equivalent).
type Element struct {
	ElementID   string            `json:"element_id"`
	ElementType string            `json:"element_type"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Level       string            `json:"level,omitempty"`
	Materials   []string          `json:"materials,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// EmbeddingContext builds the text indexed for this element. Matching
// quality depends on type and name being present; the rest is optional.
func (e Element) EmbeddingContext() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{e.ElementType, e.Name, e.Description, e.Level, strings.Join(e.Materials, " ")} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " - ")
}

// Identity is the normalized (type, name) pair used for semantic grouping.
type Identity struct {
	Type string
	Name string
}

// NormalizedIdentity lowercases and trims the type and name so that
// cosmetic variants of the same element collapse to one identity.
func NormalizedIdentity(elementType, name string) Identity {
	return Identity{
		Type: strings.ToLower(strings.TrimSpace(elementType)),
		Name: strings.ToLower(strings.TrimSpace(name)),
	}
}
