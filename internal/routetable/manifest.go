package routetable

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"gopkg.in/yaml.v3"
)

// Format is a manifest encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the manifest format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return 0, errors.Newf("unsupported route manifest extension %q (want .json, .yaml or .yml)", filepath.Ext(path))
}

// manifest is the wire form: either {"routes": [...]} or a bare list.
type manifest struct {
	Routes []wireRoute `json:"routes" yaml:"routes"`
}

type wireRoute struct {
	Controller string      `json:"controller" yaml:"controller"`
	Handler    string      `json:"handler" yaml:"handler"`
	Method     string      `json:"method" yaml:"method"`
	Prefix     string      `json:"prefix" yaml:"prefix"`
	Version    any         `json:"version" yaml:"version"`
	Route      string      `json:"route" yaml:"route"`
	Path       string      `json:"path" yaml:"path"`
	Parameters []wireParam `json:"parameters" yaml:"parameters"`
}

type wireParam struct {
	Index    int            `json:"index" yaml:"index"`
	Source   string         `json:"source" yaml:"source"`
	Data     string         `json:"data" yaml:"data"`
	Metatype string         `json:"metatype" yaml:"metatype"`
	Extra    map[string]any `json:",inline" yaml:",inline"`
}

// LoadFile reads a route manifest. The format follows the file extension.
func LoadFile(path string) ([]RouteEntry, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading route manifest %s", path)
	}
	routes, err := Decode(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "route manifest %s", path)
	}
	return routes, nil
}

// Decode parses manifest bytes and validates every route. All violations are
// reported together.
func Decode(data []byte, format Format) ([]RouteEntry, error) {
	var wire []wireRoute
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 {
			return nil, nil
		}
		if trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &wire); err != nil {
				return nil, errors.Wrap(err, "decoding JSON route list")
			}
		} else {
			var m manifest
			if err := json.Unmarshal(trimmed, &m); err != nil {
				return nil, errors.Wrap(err, "decoding JSON route manifest")
			}
			wire = m.Routes
		}
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decoding YAML route manifest")
		}
		if len(doc.Content) == 0 {
			return nil, nil
		}
		root := doc.Content[0]
		if root.Kind == yaml.SequenceNode {
			if err := root.Decode(&wire); err != nil {
				return nil, errors.Wrap(err, "decoding YAML route list")
			}
		} else {
			var m manifest
			if err := root.Decode(&m); err != nil {
				return nil, errors.Wrap(err, "decoding YAML route manifest")
			}
			wire = m.Routes
		}
	default:
		return nil, errors.Newf("unknown manifest format %d", format)
	}

	routes := make([]RouteEntry, 0, len(wire))
	var problems []string
	for i, w := range wire {
		r := w.entry()
		problems = append(problems, validateRoute(i, r)...)
		routes = append(routes, r)
	}
	if len(problems) > 0 {
		return nil, errors.Newf("invalid route manifest:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return routes, nil
}

func (w wireRoute) entry() RouteEntry {
	r := RouteEntry{
		Controller: strings.TrimSpace(w.Controller),
		Handler:    strings.TrimSpace(w.Handler),
		Method:     strings.ToUpper(strings.TrimSpace(w.Method)),
		Prefix:     w.Prefix,
		Version:    versionString(w.Version),
		Route:      w.Route,
		Path:       w.Path,
	}
	for _, p := range w.Parameters {
		d := ParamDescriptor{
			Index:    p.Index,
			Source:   ParseSource(p.Source),
			Data:     p.Data,
			Metatype: p.Metatype,
		}
		for k, v := range p.Extra {
			if d.Raw == nil {
				d.Raw = make(map[string]string, len(p.Extra)+1)
			}
			d.Raw[k] = scalarString(v)
		}
		if d.Source == SourceOpaque {
			if d.Raw == nil {
				d.Raw = make(map[string]string, 1)
			}
			d.Raw["source"] = p.Source
		}
		r.Parameters = append(r.Parameters, d)
	}
	return r
}

func validateRoute(i int, r RouteEntry) []string {
	var problems []string
	where := fmt.Sprintf("routes[%d]", i)
	if r.Controller == "" {
		problems = append(problems, where+": controller is required")
	}
	if r.Handler == "" {
		problems = append(problems, where+": handler is required")
	}
	if r.Method == "" {
		problems = append(problems, where+": method is required")
	}
	for j, p := range r.Parameters {
		if p.Index < 0 {
			problems = append(problems, fmt.Sprintf("%s.parameters[%d]: index must be >= 0, got %d", where, j, p.Index))
		}
	}
	return problems
}

// versionString accepts both `version: 1` and `version: "v1"`.
func versionString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return fmt.Sprint(v)
}

func scalarString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
