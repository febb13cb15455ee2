package jsonschema_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/jsonschema"
	"github.com/tsgonest/clientgen/internal/metadata"
	"github.com/tsgonest/clientgen/internal/testutil"
)

const src = `package api

// Status of an order.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Priority int

const (
	Low  Priority = 1
	High Priority = 2
)

type Order struct {
	ID       string            ` + "`json:\"id\"`" + `
	Status   Status            ` + "`json:\"status\"`" + `
	Priority Priority          ` + "`json:\"priority,omitempty\"`" + `
	Lines    []Line            ` + "`json:\"lines\"`" + `
	Meta     map[string]string ` + "`json:\"meta,omitempty\"`" + `
	// Note is free text.
	Note *string ` + "`json:\"note\"`" + `
}

type Line struct {
	SKU string  ` + "`json:\"sku\"`" + `
	Qty float64 ` + "`json:\"qty\"`" + `
}

type IDs []string
`

func newDeriver(t *testing.T) *jsonschema.Deriver {
	t.Helper()
	s := testutil.NewSession(t, analyzer.Options{}, testutil.Source("example.com/shop/api", "api", "models.go", src))
	return jsonschema.NewDeriver(s)
}

func TestFallback_Encoding(t *testing.T) {
	data, err := json.Marshal(jsonschema.Fallback())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{},"required":[]}`, string(data))
	assert.True(t, jsonschema.Fallback().IsFallback())
}

func TestDeriveSchema_Object(t *testing.T) {
	doc, err := newDeriver(t).DeriveSchema("Order")
	require.NoError(t, err)

	assert.Equal(t, "#/definitions/Order", doc.Ref)
	assert.Equal(t, "Order", jsonschema.RefName(doc.Ref))
	assert.Equal(t, []string{"Order", "Status", "Priority", "Line"}, doc.DefinitionNames())

	order, ok := doc.Definition("Order")
	require.True(t, ok)
	assert.Equal(t, "object", order.Type)
	assert.Equal(t, []string{"id", "status", "priority", "lines", "meta", "note"}, order.PropertyNames())
	assert.Equal(t, []string{"id", "status", "lines"}, order.Required)

	assert.Equal(t, "#/definitions/Status", order.Properties["status"].Ref)
	assert.Equal(t, "array", order.Properties["lines"].Type)
	assert.Equal(t, "#/definitions/Line", order.Properties["lines"].Items.Ref)
	assert.Equal(t, "string", order.Properties["meta"].AdditionalProperties.Type)
	assert.Equal(t, "Note is free text.", order.Properties["note"].Description)

	status, _ := doc.Definition("Status")
	assert.Equal(t, "string", status.Type)
	assert.Equal(t, []any{"open", "closed"}, status.Enum)
	assert.Equal(t, "Status of an order.", status.Description)

	priority, _ := doc.Definition("Priority")
	assert.Equal(t, "integer", priority.Type)
	assert.Equal(t, []any{int64(1), int64(2)}, priority.Enum)

	line, _ := doc.Definition("Line")
	assert.Equal(t, "number", line.Properties["qty"].Type)
}

func TestDeriveSchema_NonObject(t *testing.T) {
	doc, err := newDeriver(t).DeriveSchema("IDs")
	require.NoError(t, err)
	ids, ok := doc.Definition("IDs")
	require.True(t, ok)
	assert.Equal(t, "array", ids.Type)
	assert.Equal(t, "string", ids.Items.Type)
}

func TestDeriveSchema_Unknown(t *testing.T) {
	_, err := newDeriver(t).DeriveSchema("Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonschema.ErrTypeNotFound))
}

func TestMarshal_RoundTrip(t *testing.T) {
	doc, err := newDeriver(t).DeriveSchema("Line")
	require.NoError(t, err)

	data, err := jsonschema.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"#/definitions/Line"`)
	assert.Contains(t, string(data), "\n  \"definitions\"")

	back, err := jsonschema.Unmarshal(data)
	require.NoError(t, err)
	line, ok := back.Definition("Line")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"qty", "sku"}, line.PropertyNames())
}

func TestFromMetadata_Any(t *testing.T) {
	s := jsonschema.FromMetadata(&metadata.Metadata{Kind: metadata.KindAny})
	assert.Equal(t, &jsonschema.Schema{}, s)
}

func TestProviderFunc(t *testing.T) {
	var p jsonschema.Provider = jsonschema.ProviderFunc(func(name string) (*jsonschema.Document, error) {
		return nil, errors.Newf("no %s", name)
	})
	_, err := p.DeriveSchema("X")
	assert.EqualError(t, err, "no X")
}
