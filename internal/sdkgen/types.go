// Package sdkgen generates a typed TypeScript fetch client from enriched
// routes and the schema documents of the types they reference.
package sdkgen

import (
	"fmt"
	"time"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/jsonschema"
)

// DefaultClientName is the name of the generated client class.
const DefaultClientName = "ApiClient"

// SchemaRecord is one referenced type with its derived schema and the
// interface declaration synthesized from it.
type SchemaRecord struct {
	TypeName string
	Schema   *jsonschema.Document
	// Interface is the TypeScript declaration, without a trailing newline.
	Interface string
	// Fallback is set when derivation failed and Schema is the fallback document.
	Fallback bool
	// Transitive is set for definitions reached only through another record.
	Transitive bool
}

// GeneratedModule is the emitted client source.
type GeneratedModule struct {
	Text        string
	GeneratedAt time.Time
}

// Options controls client emission.
type Options struct {
	// ClientName names the generated client class (default "ApiClient").
	ClientName string
	// Suffix is stripped from controller names to form accessor names
	// (default "Controller").
	Suffix string
	// Envelope wraps every return type in ApiResponse<T>.
	Envelope bool
	// Now supplies the generation timestamp. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.ClientName == "" {
		o.ClientName = DefaultClientName
	}
	if o.Suffix == "" {
		o.Suffix = analyzer.DefaultSuffix
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// EmitError reports malformed input found while emitting the client.
type EmitError struct {
	// Route is "Controller.Handler" of the offending route.
	Route string
	Msg   string
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s: %s", e.Route, e.Msg)
}
