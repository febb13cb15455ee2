package analyzer

import (
	"go/types"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultUnwrap is the set of generic containers whose first type argument
// is the type a client actually sees.
var DefaultUnwrap = []string{"List", "Promise", "Future", "Async", "Result", "Optional", "Partial"}

// tsPrimitives never name a declaration in the generated module.
var tsPrimitives = map[string]bool{
	"string": true, "number": true, "boolean": true, "bigint": true, "symbol": true,
	"any": true, "unknown": true, "void": true, "never": true, "object": true,
	"null": true, "undefined": true,
}

// tsReserved are TypeScript globals and names the generated module declares
// itself. Go types with these names are emitted with a trailing underscore.
var tsReserved = map[string]bool{
	"Array": true, "Boolean": true, "Date": true, "Error": true, "Function": true,
	"Headers": true, "Map": true, "Number": true, "Object": true, "Omit": true,
	"Partial": true, "Pick": true, "Promise": true, "Readonly": true, "Record": true,
	"Request": true, "RequestInit": true, "Required": true, "Response": true,
	"Set": true, "String": true, "Symbol": true,

	"ApiError": true, "ApiResponse": true, "BaseClient": true, "Facet": true,
	"FetchFn": true, "RequestConfig": true, "RequestOptions": true, "RequestShape": true,
}

// SafeTSName renames Go type names that would shadow a TypeScript builtin or
// a declaration of the generated module.
func SafeTSName(name string) string {
	if tsReserved[name] || tsPrimitives[name] {
		return name + "_"
	}
	return name
}

// IsBuiltinName reports whether name, as it appears in rendered type text,
// refers to a TypeScript builtin rather than a generated declaration.
func IsBuiltinName(name string) bool {
	return tsReserved[name] || tsPrimitives[name]
}

type canonicalEntry struct {
	name string
	ok   bool
}

const (
	specialTime       = "time.Time"
	specialDuration   = "time.Duration"
	specialRawMessage = "encoding/json.RawMessage"
	specialContext    = "context.Context"
)

// specialType identifies the standard library types with a fixed wire form.
func specialType(obj *types.TypeName) string {
	if obj == nil || obj.Pkg() == nil {
		return ""
	}
	switch key := obj.Pkg().Path() + "." + obj.Name(); key {
	case specialTime, specialDuration, specialRawMessage, specialContext:
		return key
	}
	return ""
}

// ResolveCanonicalTypeName resolves t to the name of the declaration a client
// needs for it. Aliases resolve to the alias name, containers to their
// element, unwrap-set generics to their first argument. Basic types,
// interfaces, maps, anonymous structs and the fixed-form standard library
// types yield false.
func (s *Session) ResolveCanonicalTypeName(t types.Type) (string, bool) {
	if t == nil || s.closed {
		return "", false
	}
	if e, ok := s.canon.Get(t); ok {
		return e.name, e.ok
	}
	name, ok := s.canonical(t, 0)
	s.canon.Add(t, canonicalEntry{name: name, ok: ok})
	return name, ok
}

func (s *Session) canonical(t types.Type, depth int) (string, bool) {
	if depth > maxWalkDepth {
		return "", false
	}
	switch t := t.(type) {
	case *types.Alias:
		if t.Obj().Pkg() == nil {
			return s.canonical(types.Unalias(t), depth+1)
		}
		name := SafeTSName(t.Obj().Name())
		s.remember(name, t)
		return name, true
	case *types.Pointer:
		return s.canonical(t.Elem(), depth+1)
	case *types.Slice:
		if isByte(t.Elem()) {
			return "", false
		}
		return s.canonical(t.Elem(), depth+1)
	case *types.Array:
		return s.canonical(t.Elem(), depth+1)
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() == nil || specialType(obj) != "" {
			return "", false
		}
		if args := t.TypeArgs(); args.Len() > 0 && s.unwrap[obj.Name()] {
			return s.canonical(args.At(0), depth+1)
		}
		if _, iface := t.Underlying().(*types.Interface); iface {
			return "", false
		}
		name := s.instanceName(t, depth)
		s.remember(name, t)
		return name, true
	}
	return "", false
}

// instanceName names a named type; generic instances outside the unwrap set
// get their origin name followed by a token per type argument, so
// Page[User] is PageUser and Page[[]User] is PageUserList.
func (s *Session) instanceName(t *types.Named, depth int) string {
	args := t.TypeArgs()
	if args.Len() == 0 {
		return SafeTSName(t.Obj().Name())
	}
	var sb strings.Builder
	sb.WriteString(t.Obj().Name())
	for i := 0; i < args.Len(); i++ {
		sb.WriteString(s.argToken(args.At(i), depth+1))
	}
	return SafeTSName(sb.String())
}

func (s *Session) argToken(t types.Type, depth int) string {
	if depth > maxWalkDepth {
		return "Unknown"
	}
	switch t := t.(type) {
	case *types.Alias:
		if t.Obj().Pkg() == nil {
			return s.argToken(types.Unalias(t), depth+1)
		}
		return upperFirst(t.Obj().Name())
	case *types.Basic:
		switch {
		case t.Info()&types.IsString != 0:
			return "String"
		case t.Info()&types.IsBoolean != 0:
			return "Boolean"
		case t.Info()&types.IsNumeric != 0:
			return "Number"
		}
	case *types.Pointer:
		return s.argToken(t.Elem(), depth+1)
	case *types.Slice:
		if isByte(t.Elem()) {
			return "String"
		}
		return s.argToken(t.Elem(), depth+1) + "List"
	case *types.Array:
		return s.argToken(t.Elem(), depth+1) + "List"
	case *types.Map:
		return "Record" + s.argToken(t.Elem(), depth+1)
	case *types.Named:
		switch specialType(t.Obj()) {
		case specialTime:
			return "Time"
		case specialDuration:
			return "Number"
		case specialRawMessage, specialContext:
			return "Unknown"
		}
		if t.Obj().Pkg() == nil {
			return "Unknown"
		}
		if args := t.TypeArgs(); args.Len() > 0 && s.unwrap[t.Obj().Name()] {
			inner := s.argToken(args.At(0), depth+1)
			if t.Obj().Name() == "List" {
				return inner + "List"
			}
			return inner
		}
		if _, iface := t.Underlying().(*types.Interface); iface {
			return "Unknown"
		}
		name := upperFirst(t.Obj().Name())
		for i := 0; i < t.TypeArgs().Len(); i++ {
			name += s.argToken(t.TypeArgs().At(i), depth+1)
		}
		return name
	}
	return "Unknown"
}

// remember records the type behind a canonical name so the schema deriver can
// find generic instances, which are not package-scope objects.
func (s *Session) remember(name string, t types.Type) {
	if s.byName == nil {
		return
	}
	if _, ok := s.byName[name]; !ok {
		s.byName[name] = t
	}
}

func isByte(t types.Type) bool {
	b, ok := types.Unalias(t).(*types.Basic)
	return ok && (b.Kind() == types.Byte || b.Kind() == types.Uint8)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
