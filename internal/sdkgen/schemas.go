package sdkgen

import (
	"context"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/jsonschema"
)

// NameSet is a set of type names that remembers insertion order.
type NameSet struct {
	names []string
	seen  map[string]bool
}

// NewNameSet creates an empty set.
func NewNameSet() *NameSet {
	return &NameSet{seen: make(map[string]bool)}
}

// Add inserts name and reports whether it was new.
func (s *NameSet) Add(name string) bool {
	if name == "" || s.seen[name] {
		return false
	}
	s.seen[name] = true
	s.names = append(s.names, name)
	return true
}

// Has reports whether name was added.
func (s *NameSet) Has(name string) bool {
	return s.seen[name]
}

// Names returns the names in first-seen order.
func (s *NameSet) Names() []string {
	return s.names
}

// Len returns the number of names.
func (s *NameSet) Len() int {
	return len(s.names)
}

// SchemaOptions configures a SchemaGenerator.
type SchemaOptions struct {
	// Pattern selects controller source files, as for the route analyzer.
	Pattern string

	Logger      *zap.SugaredLogger
	Diagnostics *diagnostic.Collector
}

// SchemaGenerator collects every type the controllers reference and derives
// one schema record per type.
type SchemaGenerator struct {
	provider analyzer.Provider
	deriver  jsonschema.Provider
	opts     SchemaOptions
	logger   *zap.SugaredLogger
}

// NewSchemaGenerator creates a generator reading controllers from p and
// schemas from d.
func NewSchemaGenerator(p analyzer.Provider, d jsonschema.Provider, opts SchemaOptions) *SchemaGenerator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SchemaGenerator{provider: p, deriver: d, opts: opts, logger: logger}
}

// Generate returns one record per referenced type, in first-seen order,
// followed by records for definitions reached only transitively. It never
// fails: a type whose schema cannot be derived gets the fallback document.
// When ctx is cancelled it stops early and returns what it has; callers
// check ctx.Err.
func (g *SchemaGenerator) Generate(ctx context.Context, routes []analyzer.EnrichedRoute) []SchemaRecord {
	names := NewNameSet()
	g.collectStructural(names)
	collectFromText(names, routes)

	records := make([]SchemaRecord, 0, names.Len())
	var derived []*jsonschema.Document
	for _, name := range names.Names() {
		if ctx.Err() != nil {
			return records
		}
		doc, fallback := g.derive(name)
		records = append(records, SchemaRecord{
			TypeName:  name,
			Schema:    doc,
			Interface: GenerateInterface(name, doc),
			Fallback:  fallback,
		})
		if !fallback {
			derived = append(derived, doc)
		}
	}

	for _, doc := range derived {
		for _, def := range doc.DefinitionNames() {
			if !names.Add(def) {
				continue
			}
			sub := &jsonschema.Document{
				Schema:      jsonschema.Schema{Ref: jsonschema.DefinitionsPrefix + def},
				Definitions: doc.Definitions,
				Order:       doc.Order,
			}
			records = append(records, SchemaRecord{
				TypeName:   def,
				Schema:     sub,
				Interface:  GenerateInterface(def, sub),
				Transitive: true,
			})
		}
	}

	g.logger.Debugw("schemas generated", "types", len(records))
	return records
}

// collectStructural walks every controller method and adds the canonical
// names of its parameter and result types.
func (g *SchemaGenerator) collectStructural(names *NameSet) {
	controllers, err := g.provider.ListControllerClasses(g.opts.Pattern)
	if err != nil {
		g.logger.Warnw("controller scan failed, using route type text only", "error", err)
		return
	}
	for _, ctrl := range analyzer.SortedControllers(controllers) {
		for _, m := range ctrl.Methods() {
			for i := 0; i < m.ParamCount(); i++ {
				if name, ok := g.provider.ResolveCanonicalTypeName(m.ParamType(i)); ok {
					names.Add(name)
				}
			}
			if rt := m.ResultType(); rt != nil {
				if name, ok := g.provider.ResolveCanonicalTypeName(rt); ok {
					names.Add(name)
				}
			}
		}
	}
}

var (
	identRe  = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
	keyRe    = regexp.MustCompile(`^\s*\??:`)
	stringRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
)

// collectFromText adds identifiers found in route type text. This is a
// heuristic for types that only appear in raw route metadata: property keys
// of inline object types are skipped, everything else that is not a
// TypeScript builtin is taken as a type name.
func collectFromText(names *NameSet, routes []analyzer.EnrichedRoute) {
	for _, r := range routes {
		texts := make([]string, 0, len(r.Parameters)+1)
		texts = append(texts, r.Returns)
		for _, p := range r.Parameters {
			texts = append(texts, p.Type)
		}
		for _, text := range texts {
			for _, name := range TypeNamesInText(text) {
				names.Add(name)
			}
		}
	}
}

// TypeNamesInText extracts candidate type names from TypeScript type text.
// String literals (quoted keys, literal types) are blanked first.
func TypeNamesInText(text string) []string {
	text = stringRe.ReplaceAllStringFunc(text, func(lit string) string {
		return strings.Repeat(" ", len(lit))
	})
	var out []string
	for _, loc := range identRe.FindAllStringIndex(text, -1) {
		name := text[loc[0]:loc[1]]
		if analyzer.IsBuiltinName(name) || keyRe.MatchString(text[loc[1]:]) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// derive asks the deriver for name's document, substituting the fallback on
// error or panic.
func (g *SchemaGenerator) derive(name string) (doc *jsonschema.Document, fallback bool) {
	defer func() {
		if r := recover(); r != nil {
			doc, fallback = g.fallback(name, errors.Newf("schema derivation panicked: %v", r))
		}
	}()
	if g.deriver == nil {
		return g.fallback(name, errors.New("no schema deriver configured"))
	}
	d, err := g.deriver.DeriveSchema(name)
	if err != nil {
		return g.fallback(name, err)
	}
	if d == nil {
		return g.fallback(name, errors.New("schema deriver returned no document"))
	}
	return d, false
}

func (g *SchemaGenerator) fallback(name string, err error) (*jsonschema.Document, bool) {
	g.logger.Warnw("schema derivation failed, using fallback", "type", name, "error", err)
	g.opts.Diagnostics.Warn(diagnostic.CategorySchemaFallback, name, err.Error())
	return jsonschema.Fallback(), true
}
