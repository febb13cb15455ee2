package analyzer

import (
	"go/constant"
	"go/types"

	"github.com/tsgonest/clientgen/internal/metadata"
)

// maxWalkDepth is the maximum nesting depth for type walking and type text
// rendering. Deeply nested generic instantiations stop here as "any".
const maxWalkDepth = 20

// TypeWalker extracts Metadata from go/types types. Named types are walked
// once and registered; every later occurrence becomes a KindRef.
type TypeWalker struct {
	session  *Session
	registry *metadata.TypeRegistry
	// visiting tracks names currently being walked to break recursion.
	visiting map[string]bool
	depth    int
}

// NewTypeWalker creates a TypeWalker over a session.
func NewTypeWalker(s *Session) *TypeWalker {
	return &TypeWalker{
		session:  s,
		registry: metadata.NewTypeRegistry(),
		visiting: make(map[string]bool),
	}
}

// Registry returns the type registry with all discovered named types.
func (w *TypeWalker) Registry() *metadata.TypeRegistry {
	return w.registry
}

// WalkNamed walks the declaration of t, registers it under name, and returns
// a reference to it.
func (w *TypeWalker) WalkNamed(name string, t types.Type) metadata.Metadata {
	ref := metadata.Metadata{Kind: metadata.KindRef, Ref: name}
	if w.registry.Has(name) || w.visiting[name] {
		return ref
	}

	w.visiting[name] = true
	m := w.walkDeclaration(t)
	delete(w.visiting, name)

	m.Name = name
	w.registry.Register(name, &m)
	return ref
}

// walkDeclaration produces the shape behind a named type or alias, as
// opposed to WalkType which returns a reference for named types.
func (w *TypeWalker) walkDeclaration(t types.Type) metadata.Metadata {
	switch t := t.(type) {
	case *types.Alias:
		return w.WalkType(types.Unalias(t))
	case *types.Named:
		var m metadata.Metadata
		if enum, ok := w.enum(t); ok {
			m = enum
		} else if st, ok := t.Underlying().(*types.Struct); ok {
			m = w.walkStruct(st)
		} else {
			m = w.WalkType(t.Underlying())
		}
		if doc := w.session.Doc(t.Obj()); doc != "" {
			m.Description = doc
		}
		return m
	}
	return w.WalkType(t)
}

// WalkType converts a go/types type into Metadata.
func (w *TypeWalker) WalkType(t types.Type) metadata.Metadata {
	if t == nil || w.depth >= maxWalkDepth {
		return metadata.Metadata{Kind: metadata.KindAny}
	}
	w.depth++
	defer func() { w.depth-- }()

	switch t := t.(type) {
	case *types.Alias:
		if t.Obj().Pkg() == nil {
			return w.WalkType(types.Unalias(t))
		}
		return w.WalkNamed(SafeTSName(t.Obj().Name()), t)

	case *types.Basic:
		return basicMetadata(t)

	case *types.Pointer:
		m := w.WalkType(t.Elem())
		m.Nullable = true
		return m

	case *types.Slice:
		if isByte(t.Elem()) {
			return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "string", Format: "byte"}
		}
		elem := w.WalkType(t.Elem())
		return metadata.Metadata{Kind: metadata.KindArray, ElementType: &elem}

	case *types.Array:
		elem := w.WalkType(t.Elem())
		return metadata.Metadata{Kind: metadata.KindArray, ElementType: &elem}

	case *types.Map:
		return metadata.Metadata{
			Kind: metadata.KindMap,
			IndexSignature: &metadata.IndexSignature{
				KeyType:   metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "string"},
				ValueType: w.WalkType(t.Elem()),
			},
		}

	case *types.Struct:
		return w.walkStruct(t)

	case *types.Named:
		obj := t.Obj()
		switch specialType(obj) {
		case specialTime:
			return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "string", Format: "date-time"}
		case specialDuration:
			return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "integer", Format: "int64"}
		case specialRawMessage, specialContext:
			return metadata.Metadata{Kind: metadata.KindAny}
		}
		if obj.Pkg() == nil {
			return metadata.Metadata{Kind: metadata.KindAny}
		}
		if args := t.TypeArgs(); args.Len() > 0 && w.session.unwrap[obj.Name()] {
			inner := w.WalkType(args.At(0))
			if obj.Name() == "List" {
				return metadata.Metadata{Kind: metadata.KindArray, ElementType: &inner}
			}
			return inner
		}
		if _, iface := t.Underlying().(*types.Interface); iface {
			return metadata.Metadata{Kind: metadata.KindAny}
		}
		name := w.session.instanceName(t, w.depth)
		w.session.remember(name, t)
		return w.WalkNamed(name, t)
	}

	return metadata.Metadata{Kind: metadata.KindAny}
}

func (w *TypeWalker) walkStruct(st *types.Struct) metadata.Metadata {
	m := metadata.Metadata{Kind: metadata.KindObject}
	for _, f := range jsonFields(st) {
		var ft metadata.Metadata
		if f.AsString {
			ft = metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "string"}
		} else {
			ft = w.WalkType(f.Var.Type())
		}
		m.Properties = append(m.Properties, metadata.Property{
			Name:        f.Name,
			Type:        ft,
			Required:    f.Required,
			Description: w.session.FieldDoc(f.Var),
		})
	}
	return m
}

// enum builds an enum from the typed constants declared for a named basic type.
func (w *TypeWalker) enum(t *types.Named) (metadata.Metadata, bool) {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return metadata.Metadata{}, false
	}
	consts := w.session.EnumValues(t.Obj())
	if len(consts) == 0 {
		return metadata.Metadata{}, false
	}

	m := metadata.Metadata{Kind: metadata.KindEnum, EnumBase: basicMetadata(basic).Atomic}
	for _, c := range consts {
		m.EnumValues = append(m.EnumValues, metadata.EnumValue{Name: c.Name(), Value: constantValue(c.Val())})
	}
	return m, true
}

func constantValue(v constant.Value) any {
	switch v.Kind() {
	case constant.String:
		return constant.StringVal(v)
	case constant.Int:
		if i, ok := constant.Int64Val(v); ok {
			return i
		}
	case constant.Float:
		f, _ := constant.Float64Val(v)
		return f
	case constant.Bool:
		return constant.BoolVal(v)
	}
	return v.ExactString()
}

func basicMetadata(b *types.Basic) metadata.Metadata {
	info := b.Info()
	switch {
	case info&types.IsString != 0:
		return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "string"}
	case info&types.IsBoolean != 0:
		return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "boolean"}
	case info&types.IsInteger != 0:
		return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "integer"}
	case info&types.IsFloat != 0:
		return metadata.Metadata{Kind: metadata.KindAtomic, Atomic: "number"}
	}
	return metadata.Metadata{Kind: metadata.KindAny}
}
