package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "debug", JSON: true, Output: &buf})
	require.NoError(t, err)

	Component(l, "sdkgen").Debugw("generated", FieldRunID, "abc")
	require.NoError(t, l.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "generated", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "sdkgen", entry[FieldComponent])
	assert.Equal(t, "abc", entry[FieldRunID])
}

func TestNew_ConsoleFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)

	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.ErrorContains(t, err, `log level "loud"`)
}

func TestContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	l, err := New(Options{Output: &buf})
	require.NoError(t, err)
	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("from context")
	assert.Contains(t, buf.String(), "from context")

	assert.NotNil(t, OrNop(nil))
}
