package analyzer

import (
	"go/types"
	"regexp"
	"strconv"
	"strings"
)

// TypeText renders t as TypeScript type text. Package qualification never
// appears in the result; named types render as their canonical name.
func (s *Session) TypeText(t types.Type) string {
	return s.typeText(t, 0)
}

func (s *Session) typeText(t types.Type, depth int) string {
	if t == nil || depth > maxWalkDepth {
		return "unknown"
	}
	switch t := t.(type) {
	case *types.Alias:
		if t.Obj().Pkg() == nil {
			return s.typeText(types.Unalias(t), depth+1)
		}
		name := SafeTSName(t.Obj().Name())
		s.remember(name, t)
		return name
	case *types.Basic:
		return basicText(t)
	case *types.Pointer:
		return s.typeText(t.Elem(), depth+1)
	case *types.Slice:
		if isByte(t.Elem()) {
			return "string"
		}
		return arrayOf(s.typeText(t.Elem(), depth+1))
	case *types.Array:
		return arrayOf(s.typeText(t.Elem(), depth+1))
	case *types.Map:
		return "Record<string, " + s.typeText(t.Elem(), depth+1) + ">"
	case *types.Struct:
		return s.inlineStruct(t, depth+1)
	case *types.Named:
		obj := t.Obj()
		switch specialType(obj) {
		case specialTime:
			return "string"
		case specialDuration:
			return "number"
		case specialRawMessage, specialContext:
			return "unknown"
		}
		if obj.Pkg() == nil {
			return "unknown"
		}
		if args := t.TypeArgs(); args.Len() > 0 && s.unwrap[obj.Name()] {
			inner := s.typeText(args.At(0), depth+1)
			switch obj.Name() {
			case "List":
				return arrayOf(inner)
			case "Partial":
				return "Partial<" + inner + ">"
			}
			return inner
		}
		if _, iface := t.Underlying().(*types.Interface); iface {
			return "unknown"
		}
		name := s.instanceName(t, depth)
		s.remember(name, t)
		return name
	}
	return "unknown"
}

func (s *Session) inlineStruct(st *types.Struct, depth int) string {
	fields := jsonFields(st)
	if len(fields) == 0 {
		return "Record<string, never>"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		text := s.typeText(f.Var.Type(), depth+1)
		if f.AsString {
			text = "string"
		}
		opt := ""
		if !f.Required {
			opt = "?"
		}
		parts = append(parts, PropertyKey(f.Name)+opt+": "+text)
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

func basicText(b *types.Basic) string {
	info := b.Info()
	switch {
	case info&types.IsString != 0:
		return "string"
	case info&types.IsBoolean != 0:
		return "boolean"
	case info&(types.IsInteger|types.IsFloat) != 0:
		return "number"
	case b.Kind() == types.UntypedNil:
		return "null"
	}
	return "unknown"
}

// arrayOf appends the array suffix, parenthesizing unions and intersections.
func arrayOf(elem string) string {
	if strings.Contains(elem, " | ") || strings.Contains(elem, " & ") {
		if !strings.HasPrefix(elem, "(") {
			return "(" + elem + ")[]"
		}
	}
	return elem + "[]"
}

// PropertyKey returns a TypeScript property key, quoting names that are not
// valid identifiers.
func PropertyKey(name string) string {
	if name == "" {
		return `""`
	}
	for i, r := range name {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if i == 0 && !letter {
			return strconv.Quote(name)
		}
		if !letter && !(r >= '0' && r <= '9') {
			return strconv.Quote(name)
		}
	}
	return name
}

// qualifierRe matches an import-path qualification such as
// "github.com/acme/api." in Go type strings.
var qualifierRe = regexp.MustCompile(`(?:[\w.~-]+/)*[A-Za-z_]\w*\.`)

var goBasicText = map[string]string{
	"string": "string", "bool": "boolean",
	"int": "number", "int8": "number", "int16": "number", "int32": "number", "int64": "number",
	"uint": "number", "uint8": "number", "uint16": "number", "uint32": "number", "uint64": "number",
	"uintptr": "number", "float32": "number", "float64": "number", "byte": "number", "rune": "number",
	"any": "unknown", "interface{}": "unknown", "error": "unknown",
	"time.Time": "string", "time.Duration": "number",
	"json.RawMessage": "unknown", "encoding/json.RawMessage": "unknown",
}

// NormalizeTypeText turns a host-declared type name, which may be Go syntax
// such as "*api.User" or "[]github.com/acme/api.User", into TypeScript type
// text. Generic instantiations are named the way resolved instances are, so
// "Page[User]" becomes "PageUser". Text that is already TypeScript passes
// through unchanged. This is a best-effort conversion for metadata that
// carries no static type.
func NormalizeTypeText(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return ""
	case strings.HasPrefix(text, "*"):
		return NormalizeTypeText(text[1:])
	case text == "[]byte":
		return "string"
	case strings.HasPrefix(text, "[]"):
		return arrayOf(NormalizeTypeText(text[2:]))
	case strings.HasPrefix(text, "map["):
		if end := strings.Index(text, "]"); end > 0 {
			return "Record<string, " + NormalizeTypeText(text[end+1:]) + ">"
		}
	}
	if elem, ok := fixedArrayElem(text); ok {
		return arrayOf(NormalizeTypeText(elem))
	}
	if ts, ok := goBasicText[text]; ok {
		return ts
	}
	if origin, args, ok := splitInstance(text); ok {
		if defaultUnwrap[origin] {
			inner := NormalizeTypeText(args[0])
			if origin == "List" {
				return arrayOf(inner)
			}
			return inner
		}
		name := origin
		for _, arg := range args {
			name += argTokenText(arg)
		}
		return SafeTSName(name)
	}
	stripped := qualifierRe.ReplaceAllString(text, "")
	if stripped != text && isIdentifier(stripped) {
		return SafeTSName(stripped)
	}
	return stripped
}

var defaultUnwrap = func() map[string]bool {
	m := make(map[string]bool, len(DefaultUnwrap))
	for _, name := range DefaultUnwrap {
		m[name] = true
	}
	return m
}()

// splitInstance splits a Go generic instantiation such as
// "api.Page[api.User]" into its unqualified origin and type arguments.
func splitInstance(text string) (string, []string, bool) {
	open := strings.Index(text, "[")
	if open <= 0 || !strings.HasSuffix(text, "]") || strings.ContainsAny(text, `"'`) {
		return "", nil, false
	}
	origin := qualifierRe.ReplaceAllString(text[:open], "")
	if !isIdentifier(origin) {
		return "", nil, false
	}
	var args []string
	depth, start := 0, open+1
	for i := start; i < len(text)-1; i++ {
		switch text[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(text[start:len(text)-1]))
	for _, arg := range args {
		if arg == "" {
			return "", nil, false
		}
	}
	return origin, args, true
}

// argTokenText names one type argument of an instantiation, matching the
// tokens used for resolved instances: Page[[]User] is PageUserList.
func argTokenText(text string) string {
	text = strings.TrimPrefix(strings.TrimSpace(text), "*")
	switch {
	case text == "[]byte":
		return "String"
	case strings.HasPrefix(text, "[]"):
		return argTokenText(text[2:]) + "List"
	case strings.HasPrefix(text, "map["):
		if end := strings.Index(text, "]"); end > 0 {
			return "Record" + argTokenText(text[end+1:])
		}
	case text == "time.Time":
		return "Time"
	}
	if elem, ok := fixedArrayElem(text); ok {
		return argTokenText(elem) + "List"
	}
	if origin, args, ok := splitInstance(text); ok {
		if defaultUnwrap[origin] {
			inner := argTokenText(args[0])
			if origin == "List" {
				return inner + "List"
			}
			return inner
		}
		name := upperFirst(origin)
		for _, arg := range args {
			name += argTokenText(arg)
		}
		return name
	}
	switch goBasicText[text] {
	case "string":
		return "String"
	case "boolean":
		return "Boolean"
	case "number":
		return "Number"
	case "unknown":
		return "Unknown"
	}
	return upperFirst(qualifierRe.ReplaceAllString(text, ""))
}

// fixedArrayElem returns the element of a Go array type such as "[4]int".
func fixedArrayElem(text string) (string, bool) {
	end := strings.Index(text, "]")
	if !strings.HasPrefix(text, "[") || end < 2 {
		return "", false
	}
	for _, r := range text[1:end] {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return text[end+1:], true
}

func isIdentifier(s string) bool {
	return s != "" && PropertyKey(s) == s
}
