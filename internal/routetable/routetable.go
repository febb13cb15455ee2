// Package routetable models the host application's registered routes: the
// method, path and parameter metadata the generator joins with static types.
package routetable

import (
	"maps"
	"slices"
	"strings"
)

// ParamSource says where a handler parameter is taken from in a request.
type ParamSource string

const (
	SourcePath   ParamSource = "path"
	SourceQuery  ParamSource = "query"
	SourceBody   ParamSource = "body"
	SourceHeader ParamSource = "header"
	// SourceCustom marks parameters injected by host-specific code (the
	// current user, a tenant); they never appear on the wire.
	SourceCustom ParamSource = "custom"
	// SourceOpaque is any source token the generator does not understand.
	// The original token is kept in ParamDescriptor.Raw["source"].
	SourceOpaque ParamSource = "opaque"
)

// ParseSource maps a manifest source token to a ParamSource. Unknown tokens
// map to SourceOpaque.
func ParseSource(token string) ParamSource {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "path", "param", "params":
		return SourcePath
	case "query":
		return SourceQuery
	case "body":
		return SourceBody
	case "header", "headers":
		return SourceHeader
	case "custom":
		return SourceCustom
	}
	return SourceOpaque
}

// IsWire reports whether parameters from this source are sent by a client.
func (s ParamSource) IsWire() bool {
	switch s {
	case SourcePath, SourceQuery, SourceBody, SourceHeader:
		return true
	}
	return false
}

// ParamDescriptor is one call-site-injected parameter of a route.
type ParamDescriptor struct {
	// Index is the 0-based position in the handler's Go signature.
	Index  int
	Source ParamSource
	// Data is the raw data token: ":id" for path parameters, the query or
	// header key, or empty for a whole-value binding.
	Data string
	// Metatype is the host-declared type name, possibly empty.
	Metatype string
	// Raw holds extra key/value pairs from the manifest, plus the original
	// source token for opaque parameters.
	Raw map[string]string
}

// RouteEntry is one registered route.
type RouteEntry struct {
	Controller string
	Handler    string
	Method     string
	Prefix     string
	Version    string
	Route      string
	Path       string
	Parameters []ParamDescriptor
}

// ID identifies a route in messages.
func (r RouteEntry) ID() string {
	return r.Controller + "." + r.Handler
}

// Clone returns a deep copy, so callers never share parameter slices.
func (r RouteEntry) Clone() RouteEntry {
	out := r
	out.Parameters = make([]ParamDescriptor, len(r.Parameters))
	for i, p := range r.Parameters {
		p.Raw = maps.Clone(p.Raw)
		out.Parameters[i] = p
	}
	return out
}

// Table supplies the registered routes. It is queried once per run.
type Table interface {
	Routes() ([]RouteEntry, error)
}

// Static is an in-process route table.
type Static []RouteEntry

// Routes returns a copy of the table.
func (s Static) Routes() ([]RouteEntry, error) {
	out := make([]RouteEntry, len(s))
	for i, r := range s {
		out[i] = r.Clone()
	}
	return out, nil
}

// File is a route table read from a manifest on every call.
type File struct {
	Path string
}

// Routes loads the manifest.
func (f File) Routes() ([]RouteEntry, error) {
	return LoadFile(f.Path)
}

// SortedParameters returns the route's descriptors ordered by index. Equal
// indexes keep manifest order.
func (r RouteEntry) SortedParameters() []ParamDescriptor {
	out := slices.Clone(r.Parameters)
	slices.SortStableFunc(out, func(a, b ParamDescriptor) int { return a.Index - b.Index })
	return out
}
