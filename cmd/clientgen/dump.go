package main

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/spf13/cobra"

	"github.com/tsgonest/clientgen/internal/jsonschema"
	"github.com/tsgonest/clientgen/internal/pipeline"
)

// runDump is the JSON written by the dump command.
type runDump struct {
	RunID       string       `json:"runId"`
	Routes      []routeDump  `json:"routes"`
	Schemas     []schemaDump `json:"schemas"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
	Digest      string       `json:"digest"`
}

type routeDump struct {
	Controller string      `json:"controller"`
	Handler    string      `json:"handler"`
	Method     string      `json:"method"`
	Path       string      `json:"path"`
	Returns    string      `json:"returns,omitempty"`
	Resolved   bool        `json:"resolved"`
	Parameters []paramDump `json:"parameters,omitempty"`
}

type paramDump struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Source   string `json:"source"`
	Data     string `json:"data,omitempty"`
	Required bool   `json:"required"`
}

type schemaDump struct {
	TypeName   string               `json:"typeName"`
	Fallback   bool                 `json:"fallback,omitempty"`
	Transitive bool                 `json:"transitive,omitempty"`
	Schema     *jsonschema.Document `json:"schema"`
}

func newDumpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the analyzed routes and schemas as JSON (debug)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			run, err := a.coordinator(cmd.Context()).Generate(cmd.Context())
			if err != nil {
				return err
			}
			return json.MarshalWrite(a.stdout, newRunDump(run),
				json.Deterministic(true), jsontext.WithIndent("  "))
		},
	}
}

func newRunDump(run *pipeline.Run) runDump {
	d := runDump{
		RunID:   run.ID,
		Routes:  make([]routeDump, 0, len(run.Routes)),
		Schemas: make([]schemaDump, 0, len(run.Schemas)),
		Digest:  run.Digest,
	}
	for _, r := range run.Routes {
		rd := routeDump{
			Controller: r.Controller,
			Handler:    r.Handler,
			Method:     r.Method,
			Path:       r.FullPath,
			Returns:    r.Returns,
			Resolved:   r.Resolved,
		}
		for _, p := range r.Parameters {
			rd.Parameters = append(rd.Parameters, paramDump{
				Index:    p.Index,
				Name:     p.Name,
				Type:     p.Type,
				Source:   string(p.Source),
				Data:     p.Data,
				Required: p.Required,
			})
		}
		d.Routes = append(d.Routes, rd)
	}
	for _, s := range run.Schemas {
		d.Schemas = append(d.Schemas, schemaDump{
			TypeName:   s.TypeName,
			Fallback:   s.Fallback,
			Transitive: s.Transitive,
			Schema:     s.Schema,
		})
	}
	for _, diag := range run.Diagnostics.Diagnostics() {
		d.Diagnostics = append(d.Diagnostics, diag.String())
	}
	return d
}
