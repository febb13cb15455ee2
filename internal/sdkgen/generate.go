package sdkgen

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/routetable"
)

var httpMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

var placeholderRe = regexp.MustCompile(`\$\{([^}]*)\}`)

// timestampRe matches the only line of a module that varies between runs.
var timestampRe = regexp.MustCompile(`(?m)^// Generated at: .*$`)

type controllerGroup struct {
	name   string
	routes []analyzer.EnrichedRoute
}

// Generate emits the client module for routes and the interface declarations
// of records. Apart from the "Generated at" header line the output is a pure
// function of the inputs.
func Generate(routes []analyzer.EnrichedRoute, records []SchemaRecord, opts Options) (*GeneratedModule, error) {
	opts = opts.withDefaults()
	if analyzer.PropertyKey(opts.ClientName) != opts.ClientName {
		return nil, &EmitError{Route: "client", Msg: fmt.Sprintf("invalid client class name %q", opts.ClientName)}
	}

	groups := groupRoutes(routes)
	client, err := emitClient(groups, opts)
	if err != nil {
		return nil, err
	}

	now := opts.Now().UTC()
	sections := []string{
		header(now, len(routes), len(groups)),
		sharedTypes,
		clientBase,
		client,
	}
	if decls := interfaces(records); decls != "" {
		sections = append(sections, decls)
	}
	return &GeneratedModule{
		Text:        strings.Join(sections, "\n\n") + "\n",
		GeneratedAt: now,
	}, nil
}

// StripTimestamp blanks the generation timestamp so two modules can be
// compared for content.
func StripTimestamp(text string) string {
	return timestampRe.ReplaceAllLiteralString(text, "// Generated at:")
}

func header(now time.Time, routes, controllers int) string {
	return strings.Join([]string{
		"// Code generated by clientgen. DO NOT EDIT.",
		"// Generated at: " + now.Format(time.RFC3339),
		fmt.Sprintf("// Source: %d route(s) across %d controller(s).", routes, controllers),
	}, "\n")
}

// groupRoutes groups routes by controller, keeping first-seen order of both.
func groupRoutes(routes []analyzer.EnrichedRoute) []*controllerGroup {
	var groups []*controllerGroup
	index := make(map[string]*controllerGroup)
	for _, r := range routes {
		g, ok := index[r.Controller]
		if !ok {
			g = &controllerGroup{name: r.Controller}
			index[r.Controller] = g
			groups = append(groups, g)
		}
		g.routes = append(g.routes, r)
	}
	return groups
}

func emitClient(groups []*controllerGroup, opts Options) (string, error) {
	if len(groups) == 0 {
		return fmt.Sprintf("export class %s extends BaseClient {}", opts.ClientName), nil
	}

	e := NewEmitter()
	e.Block("export class %s extends BaseClient", opts.ClientName)
	accessors := newUniqueNamer(baseClientMembers)
	for i, g := range groups {
		if i > 0 {
			e.Blank()
		}
		e.Block("get %s()", accessors.name(accessorName(g.name, opts.Suffix)))
		e.Block("return")
		methods := newUniqueNamer(nil)
		for _, r := range g.routes {
			if err := emitRoute(e, r, methods, opts); err != nil {
				return "", err
			}
		}
		e.EndBlockSuffix(";")
		e.EndBlock()
	}
	e.EndBlock()
	return e.String(), nil
}

func emitRoute(e *Emitter, r analyzer.EnrichedRoute, methods *uniqueNamer, opts Options) error {
	if r.Handler == "" {
		return &EmitError{Route: r.Controller + ".?", Msg: "handler name is empty"}
	}
	id := r.Controller + "." + r.Handler
	verb := strings.ToUpper(strings.TrimSpace(r.Method))
	if !httpMethods[verb] {
		return &EmitError{Route: id, Msg: fmt.Sprintf("invalid HTTP method %q", r.Method)}
	}

	f := buildFacets(r.Parameters)
	path, err := pathExpression(r.FullPath, f.pathKeys)
	if err != nil {
		return &EmitError{Route: id, Msg: err.Error()}
	}

	ret := r.Returns
	if ret == "" {
		ret = "unknown"
	}
	if opts.Envelope {
		ret = "ApiResponse<" + ret + ">"
	}

	name := analyzer.PropertyKey(methods.name(lowerCamel(r.Handler)))
	e.Line("%s: (%s): Promise<%s> =>", name, f.optionsParam(), ret)
	e.Indent()
	e.Line("this.request<%s>(%q, %s, options),", ret, verb, path)
	e.Dedent()
	return nil
}

// facet accumulates the TypeScript type of one request options facet.
type facet struct {
	keyed []string
	whole []string
}

func (f *facet) addKey(key, typ string, required bool) {
	opt := "?"
	if required {
		opt = ""
	}
	f.keyed = append(f.keyed, analyzer.PropertyKey(key)+opt+": "+typ)
}

func (f *facet) addWhole(typ string) {
	if strings.Contains(typ, " | ") {
		typ = "(" + typ + ")"
	}
	f.whole = append(f.whole, typ)
}

func (f *facet) text() string {
	var parts []string
	if len(f.keyed) > 0 {
		parts = append(parts, "{ "+strings.Join(f.keyed, "; ")+" }")
	}
	parts = append(parts, f.whole...)
	if len(parts) == 0 {
		return "never"
	}
	return strings.Join(parts, " & ")
}

type facets struct {
	params, query, body, headers facet
	// pathKeys are the keys of the params facet usable as path placeholders.
	pathKeys map[string]bool
}

// buildFacets sorts parameters into the params, query, body and headers
// facets. A parameter bound to a ":name" placeholder always lands in params.
// Custom and opaque parameters are supplied by the server and contribute
// nothing.
func buildFacets(params []analyzer.TypedParameter) *facets {
	f := &facets{pathKeys: make(map[string]bool)}
	for _, p := range params {
		typ := p.Type
		if typ == "" {
			typ = "unknown"
		}
		if name := p.PathName(); name != "" || p.Source == routetable.SourcePath {
			if name == "" {
				name = p.Data
			}
			if name == "" {
				f.params.addWhole(typ)
				continue
			}
			if f.pathKeys[name] {
				continue
			}
			f.pathKeys[name] = true
			f.params.addKey(name, pathValueType(typ), true)
			continue
		}

		if !p.Source.IsWire() {
			continue
		}
		target := &f.headers
		switch p.Source {
		case routetable.SourceQuery:
			target = &f.query
		case routetable.SourceBody:
			target = &f.body
		}
		if p.Data == "" {
			target.addWhole(typ)
		} else {
			target.addKey(p.Data, typ, p.Required)
		}
	}
	return f
}

// optionsParam renders the options parameter of a client method. Facets
// after the last present one are left to their never defaults.
func (f *facets) optionsParam() string {
	args := []string{f.params.text(), f.query.text(), f.body.text(), f.headers.text()}
	n := len(args)
	for n > 0 && args[n-1] == "never" {
		n--
	}
	if n == 0 {
		return "options?: RequestOptions"
	}
	return "options: RequestOptions<" + strings.Join(args[:n], ", ") + ">"
}

func pathValueType(typ string) string {
	if typ == "number" {
		return typ
	}
	return "string"
}

// pathExpression renders fullPath as a template literal whose placeholders
// read URI-encoded values from options.params.
func pathExpression(fullPath string, keys map[string]bool) (string, error) {
	if fullPath == "" {
		fullPath = "/"
	}
	var sb strings.Builder
	sb.WriteByte('`')
	last := 0
	for _, loc := range placeholderRe.FindAllStringSubmatchIndex(fullPath, -1) {
		sb.WriteString(escapeTemplate(fullPath[last:loc[0]]))
		name := fullPath[loc[2]:loc[3]]
		if !keys[name] {
			return "", errors.Newf("path placeholder %q has no path parameter", name)
		}
		fmt.Fprintf(&sb, "${encodeURIComponent(String(options.params%s))}", memberAccess(name))
		last = loc[1]
	}
	sb.WriteString(escapeTemplate(fullPath[last:]))
	sb.WriteByte('`')
	return sb.String(), nil
}

func memberAccess(key string) string {
	if k := analyzer.PropertyKey(key); k != key {
		return "[" + k + "]"
	}
	return "." + key
}

func escapeTemplate(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	return strings.ReplaceAll(s, "${", "\\${")
}

// interfaces joins the declarations of records, once per type name.
func interfaces(records []SchemaRecord) string {
	seen := make(map[string]bool, len(records))
	var decls []string
	for _, rec := range records {
		if rec.Interface == "" || seen[rec.TypeName] {
			continue
		}
		seen[rec.TypeName] = true
		decls = append(decls, rec.Interface)
	}
	return strings.Join(decls, "\n\n")
}
