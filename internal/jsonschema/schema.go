// Package jsonschema derives structural schema documents for named Go types.
// Documents follow the draft-07 "definitions" layout: a root $ref plus one
// definition per named type reached from it.
package jsonschema

import (
	"sort"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// DefinitionsPrefix is the $ref prefix of a definition.
const DefinitionsPrefix = "#/definitions/"

// Schema is one JSON Schema node.
type Schema struct {
	Ref         string `json:"$ref,omitempty"`
	Type        string `json:"type,omitempty"`
	Format      string `json:"format,omitempty"`
	Description string `json:"description,omitempty"`

	// Properties and Required serialize even when empty but non-nil, so the
	// fallback document keeps "properties": {} and "required": [].
	Properties map[string]*Schema `json:"properties,omitzero"`
	Required   []string           `json:"required,omitzero"`
	// PropertyOrder is the declaration order of Properties.
	PropertyOrder []string `json:"-"`

	Items                *Schema `json:"items,omitempty"`
	AdditionalProperties *Schema `json:"additionalProperties,omitempty"`
	Enum                 []any   `json:"enum,omitempty"`
}

// Document is a derived schema document.
type Document struct {
	Schema `json:",inline"`

	Definitions map[string]*Schema `json:"definitions,omitempty"`
	// Order is the order definitions were discovered in.
	Order []string `json:"-"`
}

// Fallback returns the document substituted when derivation fails:
// {"type":"object","properties":{},"required":[]}.
func Fallback() *Document {
	return &Document{Schema: Schema{
		Type:       "object",
		Properties: map[string]*Schema{},
		Required:   []string{},
	}}
}

// IsFallback reports whether d is structurally the fallback document.
func (d *Document) IsFallback() bool {
	return d != nil && d.Ref == "" && d.Type == "object" &&
		len(d.Properties) == 0 && len(d.Required) == 0 && len(d.Definitions) == 0
}

// Definition returns the named definition.
func (d *Document) Definition(name string) (*Schema, bool) {
	if d == nil {
		return nil, false
	}
	s, ok := d.Definitions[name]
	return s, ok && s != nil
}

// DefinitionNames returns definition names in discovery order, then any
// remaining names sorted.
func (d *Document) DefinitionNames() []string {
	seen := make(map[string]bool, len(d.Definitions))
	var out []string
	for _, name := range d.Order {
		if _, ok := d.Definitions[name]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	var rest []string
	for name := range d.Definitions {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// PropertyNames returns property names in declaration order when known,
// otherwise sorted.
func (s *Schema) PropertyNames() []string {
	if len(s.PropertyOrder) == len(s.Properties) {
		return s.PropertyOrder
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefName strips the definitions prefix from a $ref.
func RefName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// Marshal encodes a document with sorted keys and two-space indentation.
func Marshal(d *Document) ([]byte, error) {
	return json.Marshal(d, json.Deterministic(true), jsontext.WithIndent("  "), jsontext.SpaceAfterColon(true))
}

// Unmarshal decodes a document.
func Unmarshal(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
