// Package metadata defines the normalized type representation shared by the
// analyzer and the schema deriver. It is the Go-side picture of a handler's
// parameter or result type, independent of both go/types and JSON Schema.
package metadata

// Metadata represents the full type information for one Go type.
type Metadata struct {
	// Kind identifies the primary kind of the type.
	Kind Kind `json:"kind"`

	// Nullable is true for pointer types; the JSON value may be null.
	Nullable bool `json:"nullable,omitempty"`

	// Name is the type's canonical name (e.g., "CreateUserRequest").
	// Empty for anonymous types.
	Name string `json:"name,omitempty"`

	// Atomic holds the specific atomic type: "string", "number", "integer", "boolean".
	// Only set when Kind == KindAtomic.
	Atomic string `json:"atomic,omitempty"`

	// Format refines atomic types (e.g., "date-time" for time.Time, "int64").
	Format string `json:"format,omitempty"`

	// Properties holds the fields of a struct type, in declaration order.
	// Only set when Kind == KindObject.
	Properties []Property `json:"properties,omitempty"`

	// ElementType holds the element type for slices and arrays.
	// Only set when Kind == KindArray.
	ElementType *Metadata `json:"elementType,omitempty"`

	// EnumValues holds the values of typed constants declared for a named
	// basic type. Only set when Kind == KindEnum.
	EnumValues []EnumValue `json:"enumValues,omitempty"`

	// EnumBase is the atomic kind underlying an enum ("string" or "integer").
	EnumBase string `json:"enumBase,omitempty"`

	// IndexSignature holds key/value types for map types.
	IndexSignature *IndexSignature `json:"indexSignature,omitempty"`

	// Ref is set when Kind == KindRef: a reference to a named type
	// registered in the TypeRegistry.
	Ref string `json:"$ref,omitempty"`

	// Description is the doc comment of the declaring type, if any.
	Description string `json:"description,omitempty"`
}

// Kind represents the primary classification of a type.
type Kind string

const (
	KindAny    Kind = "any"    // interfaces, any
	KindAtomic Kind = "atomic" // string, number, integer, boolean
	KindObject Kind = "object" // structs
	KindArray  Kind = "array"  // []T, [N]T
	KindMap    Kind = "map"    // map[K]V
	KindEnum   Kind = "enum"   // named basic type with typed constants
	KindRef    Kind = "ref"    // reference to a named type
)

// Property represents a struct field as it appears on the wire.
type Property struct {
	// Name is the JSON name (json tag name, or the Go field name).
	Name     string   `json:"name"`
	Type     Metadata `json:"type"`
	Required bool     `json:"required"`
	// Description is the field's doc or line comment.
	Description string `json:"description,omitempty"`
}

// EnumValue represents a single typed constant.
type EnumValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"` // string or int64
}

// IndexSignature represents map[K]V.
type IndexSignature struct {
	KeyType   Metadata `json:"keyType"`
	ValueType Metadata `json:"valueType"`
}

// IsNamed reports whether m is a reference to, or a declaration of, a named type.
func (m *Metadata) IsNamed() bool {
	return m.Kind == KindRef || m.Name != ""
}

// TypeRegistry tracks named types to support $ref and prevent infinite recursion.
// Order records registration order so consumers can iterate deterministically.
type TypeRegistry struct {
	Types map[string]*Metadata
	Order []string
}

// NewTypeRegistry creates an empty type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{Types: make(map[string]*Metadata)}
}

// Register adds a named type to the registry. Re-registering a name replaces
// its metadata without changing its position.
func (r *TypeRegistry) Register(name string, m *Metadata) {
	if _, ok := r.Types[name]; !ok {
		r.Order = append(r.Order, name)
	}
	r.Types[name] = m
}

// Has checks if a named type is already registered.
func (r *TypeRegistry) Has(name string) bool {
	_, ok := r.Types[name]
	return ok
}

// Lookup returns the metadata registered under name.
func (r *TypeRegistry) Lookup(name string) (*Metadata, bool) {
	m, ok := r.Types[name]
	return m, ok
}
