package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/tsgonest/clientgen/internal/diagnostic"
	"github.com/tsgonest/clientgen/internal/routetable"
)

// EnrichedRoute is a route joined with the static types of its handler.
type EnrichedRoute struct {
	routetable.RouteEntry

	// BasePath is prefix, version, route and path joined with single slashes.
	BasePath string
	// FullPath is BasePath with every bound ":name" segment rendered as ${name}.
	FullPath string
	// Returns is the handler's result as TypeScript text. Empty when the
	// handler could not be resolved.
	Returns string
	// Parameters are sorted ascending by Index.
	Parameters []TypedParameter
	// Resolved is true when the declared handler was found.
	Resolved bool
}

// TypedParameter pairs a route parameter with its declared name and type.
type TypedParameter struct {
	Index    int
	Name     string
	Type     string
	Required bool
	Source   routetable.ParamSource
	Data     string
	Raw      routetable.ParamDescriptor
}

// PathName returns the placeholder name of a path parameter bound through a
// ":name" data token, or "".
func (p TypedParameter) PathName() string {
	if strings.HasPrefix(p.Data, ":") {
		return p.Data[1:]
	}
	return ""
}

// RouteFailure is one route that failed static resolution.
type RouteFailure struct {
	Route string
	Err   error
}

// AnalysisError aggregates every route failure of one analysis pass. When it
// is returned no enriched routes are.
type AnalysisError struct {
	Failures []RouteFailure
}

func (e *AnalysisError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Route+": "+f.Err.Error())
	}
	return fmt.Sprintf("route analysis failed for %d route(s):\n  %s", len(e.Failures), strings.Join(msgs, "\n  "))
}

// RouteOptions configures a RouteAnalyzer.
type RouteOptions struct {
	// Pattern selects controller source files (doublestar globs, comma separated).
	Pattern string
	// StrictParameters turns a parameter index beyond the handler's declared
	// parameters into a route failure instead of a warning.
	StrictParameters bool

	Logger      *zap.SugaredLogger
	Diagnostics *diagnostic.Collector
}

// RouteAnalyzer joins a route table with a Provider's declared types.
type RouteAnalyzer struct {
	provider Provider
	opts     RouteOptions
	logger   *zap.SugaredLogger
}

// NewRouteAnalyzer creates a route analyzer over p.
func NewRouteAnalyzer(p Provider, opts RouteOptions) *RouteAnalyzer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RouteAnalyzer{provider: p, opts: opts, logger: logger}
}

// Analyze enriches every route. Per-route failures are collected and
// returned together as one *AnalysisError; the result is then nil.
func (a *RouteAnalyzer) Analyze(ctx context.Context, entries []routetable.RouteEntry) ([]EnrichedRoute, error) {
	if len(entries) == 0 {
		return []EnrichedRoute{}, nil
	}

	controllers, err := a.provider.ListControllerClasses(a.opts.Pattern)
	if err != nil {
		return nil, errors.Wrap(err, "listing controllers")
	}
	if len(controllers) == 0 {
		a.logger.Warnw("no controllers matched", "pattern", a.opts.Pattern)
		return []EnrichedRoute{}, nil
	}

	routes := make([]EnrichedRoute, 0, len(entries))
	var failures []RouteFailure
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		route, err := a.analyzeRoute(entry, controllers)
		if err != nil {
			failures = append(failures, RouteFailure{Route: entry.ID(), Err: err})
			continue
		}
		routes = append(routes, route)
	}

	if len(failures) > 0 {
		return nil, &AnalysisError{Failures: failures}
	}
	a.logger.Debugw("routes analyzed", "routes", len(routes), "controllers", len(controllers))
	return routes, nil
}

func (a *RouteAnalyzer) analyzeRoute(entry routetable.RouteEntry, controllers map[string]*Controller) (route EnrichedRoute, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("type analysis panicked: %v", r)
		}
	}()

	route = EnrichedRoute{
		RouteEntry: entry.Clone(),
		BasePath:   BasePath(entry.Prefix, entry.Version, entry.Route, entry.Path),
	}

	var method *Method
	if ctrl, ok := controllers[entry.Controller]; !ok {
		a.opts.Diagnostics.Warn(diagnostic.CategoryRouteUnresolved, entry.ID(), "controller not found among analyzed sources")
	} else if m, ok := a.provider.Method(ctrl, entry.Handler); !ok {
		a.opts.Diagnostics.Warn(diagnostic.CategoryRouteUnresolved, entry.ID(), "handler not declared on "+ctrl.Name)
	} else {
		method = m
		route.Resolved = true
		route.Returns = a.provider.ReturnTypeText(m)
	}

	declared := method.ParamCount()
	for _, desc := range entry.SortedParameters() {
		p := TypedParameter{
			Index:  desc.Index,
			Source: desc.Source,
			Data:   desc.Data,
			Raw:    desc,
		}
		if method != nil && desc.Index < declared {
			p.Name = method.ParamName(desc.Index)
			p.Type = a.provider.ParameterTypeText(method, desc.Index)
			p.Required = true
		}
		if p.Name == "" {
			p.Name = fmt.Sprintf("param%d", desc.Index)
		}
		if p.Type == "" {
			if method != nil {
				msg := fmt.Sprintf("parameter index %d exceeds the %d declared parameter(s)", desc.Index, declared)
				if a.opts.StrictParameters {
					a.opts.Diagnostics.Error(diagnostic.CategoryParameterIndex, entry.ID(), msg)
					return EnrichedRoute{}, errors.New(msg)
				}
				a.opts.Diagnostics.WarnWithHint(diagnostic.CategoryParameterIndex, entry.ID(), msg,
					"the generated signature falls back to the host metatype and may be wrong")
			}
			p.Type = NormalizeTypeText(desc.Metatype)
			if p.Type == "" {
				p.Type = "unknown"
			}
		}
		route.Parameters = append(route.Parameters, p)
	}

	route.FullPath = InterpolatePath(route.BasePath, route.Parameters)
	return route, nil
}

// BasePath joins path segments with single slashes. A bare numeric version
// renders as "v<version>".
func BasePath(prefix, version, route, path string) string {
	if version != "" && isDigits(version) {
		version = "v" + version
	}
	var parts []string
	for _, seg := range []string{prefix, version, route, path} {
		if seg = cleanPath(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	return "/" + strings.Join(parts, "/")
}

// InterpolatePath replaces each ":name" segment of base that is bound by a
// parameter with a ":name" data token with the template token ${name}.
func InterpolatePath(base string, params []TypedParameter) string {
	bound := make(map[string]bool)
	for _, p := range params {
		if name := p.PathName(); name != "" {
			bound[name] = true
		}
	}
	if len(bound) == 0 {
		return base
	}

	segs := strings.Split(base, "/")
	for i, seg := range segs {
		if strings.HasPrefix(seg, ":") && bound[seg[1:]] {
			segs[i] = "${" + seg[1:] + "}"
		}
	}
	return strings.Join(segs, "/")
}

// cleanPath removes leading and trailing slashes.
func cleanPath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
