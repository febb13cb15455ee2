package analyzer

import (
	"go/types"
	"reflect"
	"strings"
)

// maxEmbedDepth bounds embedded-struct flattening.
const maxEmbedDepth = 5

// jsonTagInfo holds parsed information from a json struct tag.
type jsonTagInfo struct {
	Name      string // field name from the tag, empty when absent
	OmitEmpty bool
	OmitZero  bool
	AsString  bool // ",string" option
	Skip      bool // json:"-"
}

// parseJSONTag extracts the json key of a raw struct tag.
func parseJSONTag(tag string) jsonTagInfo {
	jsonTag, ok := reflect.StructTag(tag).Lookup("json")
	if !ok {
		return jsonTagInfo{}
	}
	if jsonTag == "-" {
		return jsonTagInfo{Skip: true}
	}

	parts := strings.Split(jsonTag, ",")
	info := jsonTagInfo{Name: parts[0]}
	for _, opt := range parts[1:] {
		switch opt {
		case "omitempty":
			info.OmitEmpty = true
		case "omitzero":
			info.OmitZero = true
		case "string":
			info.AsString = true
		}
	}
	return info
}

// jsonField is a struct field as encoding/json puts it on the wire.
type jsonField struct {
	Name     string
	Var      *types.Var
	Required bool
	AsString bool
}

// jsonFields lists the wire fields of st in declaration order. Untagged
// embedded structs are flattened; a field declared directly on st wins over
// a promoted field with the same name.
func jsonFields(st *types.Struct) []jsonField {
	return collectJSONFields(st, 0)
}

func collectJSONFields(st *types.Struct, depth int) []jsonField {
	type item struct {
		field    *jsonField
		promoted []jsonField
	}

	var items []item
	direct := make(map[string]bool)
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		tag := parseJSONTag(st.Tag(i))
		if tag.Skip {
			continue
		}
		if v.Embedded() && tag.Name == "" {
			if inner, ok := derefStruct(v.Type()); ok {
				if depth < maxEmbedDepth {
					items = append(items, item{promoted: collectJSONFields(inner, depth+1)})
				}
				continue
			}
		}
		if !v.Exported() {
			continue
		}
		name := tag.Name
		if name == "" {
			name = v.Name()
		}
		_, isPtr := types.Unalias(v.Type()).(*types.Pointer)
		f := &jsonField{
			Name:     name,
			Var:      v,
			Required: !tag.OmitEmpty && !tag.OmitZero && !isPtr,
			AsString: tag.AsString,
		}
		direct[name] = true
		items = append(items, item{field: f})
	}

	var out []jsonField
	seen := make(map[string]bool)
	for _, it := range items {
		if it.field != nil {
			if !seen[it.field.Name] {
				seen[it.field.Name] = true
				out = append(out, *it.field)
			}
			continue
		}
		for _, f := range it.promoted {
			if direct[f.Name] || seen[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	return out
}

func derefStruct(t types.Type) (*types.Struct, bool) {
	t = types.Unalias(t)
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	return st, ok
}
