package jsonschema

import (
	"github.com/cockroachdb/errors"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/metadata"
)

// Provider derives a schema document for a canonical type name.
type Provider interface {
	DeriveSchema(name string) (*Document, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) (*Document, error)

// DeriveSchema calls f.
func (f ProviderFunc) DeriveSchema(name string) (*Document, error) {
	return f(name)
}

// ErrTypeNotFound is returned for names the session never saw.
var ErrTypeNotFound = errors.New("type not found")

// Deriver derives documents from the types of an analyzer session.
type Deriver struct {
	session *analyzer.Session
}

var _ Provider = (*Deriver)(nil)

// NewDeriver creates a deriver over s.
func NewDeriver(s *analyzer.Session) *Deriver {
	return &Deriver{session: s}
}

// DeriveSchema walks the named type and every named type it reaches. The
// root $ref points at name and each reached type gets a definition.
func (d *Deriver) DeriveSchema(name string) (*Document, error) {
	t, ok := d.session.LookupType(name)
	if !ok {
		return nil, errors.Wrapf(ErrTypeNotFound, "%s", name)
	}

	w := analyzer.NewTypeWalker(d.session)
	root := w.WalkNamed(name, t)
	if root.Kind != metadata.KindRef {
		return nil, errors.Newf("type %s did not resolve to a declaration", name)
	}
	return FromRegistry(name, w.Registry()), nil
}

// FromRegistry builds a document rooted at name from walked metadata.
func FromRegistry(name string, reg *metadata.TypeRegistry) *Document {
	doc := &Document{
		Schema:      Schema{Ref: DefinitionsPrefix + name},
		Definitions: make(map[string]*Schema, len(reg.Order)),
	}
	// The root definition leads; dependencies follow in walk order.
	order := append([]string{name}, reg.Order...)
	for _, n := range order {
		if _, done := doc.Definitions[n]; done {
			continue
		}
		m, ok := reg.Lookup(n)
		if !ok {
			continue
		}
		doc.Definitions[n] = FromMetadata(m)
		doc.Order = append(doc.Order, n)
	}
	return doc
}

// FromMetadata converts one metadata node to a schema. Named references
// become $ref nodes.
func FromMetadata(m *metadata.Metadata) *Schema {
	var s *Schema
	switch m.Kind {
	case metadata.KindAtomic:
		s = &Schema{Type: m.Atomic, Format: m.Format}
	case metadata.KindEnum:
		s = &Schema{Type: m.EnumBase}
		for _, v := range m.EnumValues {
			s.Enum = append(s.Enum, v.Value)
		}
	case metadata.KindObject:
		s = &Schema{Type: "object", Properties: make(map[string]*Schema, len(m.Properties)), Required: []string{}}
		for i := range m.Properties {
			p := &m.Properties[i]
			ps := FromMetadata(&p.Type)
			if p.Description != "" && ps.Ref == "" {
				ps.Description = p.Description
			}
			s.Properties[p.Name] = ps
			s.PropertyOrder = append(s.PropertyOrder, p.Name)
			if p.Required {
				s.Required = append(s.Required, p.Name)
			}
		}
	case metadata.KindArray:
		s = &Schema{Type: "array"}
		if m.ElementType != nil {
			s.Items = FromMetadata(m.ElementType)
		} else {
			s.Items = &Schema{}
		}
	case metadata.KindMap:
		s = &Schema{Type: "object"}
		if m.IndexSignature != nil {
			s.AdditionalProperties = FromMetadata(&m.IndexSignature.ValueType)
		}
	case metadata.KindRef:
		return &Schema{Ref: DefinitionsPrefix + m.Ref}
	default:
		s = &Schema{}
	}
	if m.Description != "" {
		s.Description = m.Description
	}
	return s
}
