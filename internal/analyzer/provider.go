package analyzer

import (
	"go/token"
	"go/types"
	"sort"
)

// Provider answers the type questions the route analyzer and the schema
// collector ask about controller sources. Session is the go/packages backed
// implementation; tests substitute fakes.
type Provider interface {
	// ListControllerClasses returns every controller type declared in a file
	// matching pattern, keyed by type name.
	ListControllerClasses(pattern string) (map[string]*Controller, error)
	// Method looks up an exported handler on a controller.
	Method(ctrl *Controller, name string) (*Method, bool)
	// ParameterTypeText renders the declared type of parameter index as
	// TypeScript text. Out-of-range indexes return "".
	ParameterTypeText(m *Method, index int) string
	// ReturnTypeText renders the handler's result type as TypeScript text.
	ReturnTypeText(m *Method) string
	// ResolveCanonicalTypeName returns the canonical reference name of t, or
	// false when t is a builtin or otherwise contributes no named type.
	ResolveCanonicalTypeName(t types.Type) (string, bool)
	// Close releases the loaded packages and caches.
	Close() error
}

// Controller is a named type whose name carries the controller suffix.
type Controller struct {
	// Name is the Go type name (e.g., "UsersController").
	Name string
	// PkgPath is the import path of the declaring package.
	PkgPath string
	// File is the declaring file, relative to the project directory.
	File string
	// Obj is the type-checker object of the declaration.
	Obj *types.TypeName

	pos     token.Pos
	methods []*Method
}

// Methods returns the exported methods of *T in method-set order.
func (c *Controller) Methods() []*Method {
	return c.methods
}

// Method is a handler method on a controller.
type Method struct {
	Controller *Controller
	Name       string
	Func       *types.Func
	Signature  *types.Signature
}

// ParamCount returns the number of declared parameters.
func (m *Method) ParamCount() int {
	if m == nil || m.Signature == nil {
		return 0
	}
	return m.Signature.Params().Len()
}

// ParamName returns the declared name of parameter i, or "" if unnamed or out of range.
func (m *Method) ParamName(i int) string {
	if i < 0 || i >= m.ParamCount() {
		return ""
	}
	name := m.Signature.Params().At(i).Name()
	if name == "_" {
		return ""
	}
	return name
}

// ParamType returns the declared type of parameter i, or nil if out of range.
func (m *Method) ParamType(i int) types.Type {
	if i < 0 || i >= m.ParamCount() {
		return nil
	}
	return m.Signature.Params().At(i).Type()
}

// ResultType returns the first non-error result, or nil when the handler
// returns only an error or nothing at all.
func (m *Method) ResultType() types.Type {
	if m == nil || m.Signature == nil {
		return nil
	}
	results := m.Signature.Results()
	for i := 0; i < results.Len(); i++ {
		t := results.At(i).Type()
		if isErrorType(t) {
			continue
		}
		return t
	}
	return nil
}

// SortedControllers returns controllers in declaration order so callers never
// depend on map iteration.
func SortedControllers(ctrls map[string]*Controller) []*Controller {
	out := make([]*Controller, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if out[i].pos != out[j].pos {
			return out[i].pos < out[j].pos
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func isErrorType(t types.Type) bool {
	return types.Identical(t, types.Universe.Lookup("error").Type())
}
