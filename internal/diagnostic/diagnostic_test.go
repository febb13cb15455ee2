package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityWarning,
		Category: CategoryParameterIndex,
		Subject:  "UsersController.Find",
		Message:  "parameter index 3 exceeds declared parameters",
		Hint:     "check the route table",
	}

	s := d.String()
	assert.Contains(t, s, "UsersController.Find - ")
	assert.Contains(t, s, "warning")
	assert.Contains(t, s, "[parameter-index]")
	assert.Contains(t, s, "hint: check the route table")
}

func TestCollector_WarnAndError(t *testing.T) {
	c := NewCollector()
	c.Warn(CategorySchemaFallback, "User", "provider failed")
	c.Error(CategoryConfigInvalid, "", "missing output.path")

	assert.Equal(t, 1, c.WarningCount())
	assert.Equal(t, 1, c.ErrorCount())
	assert.Equal(t, "1 error(s), 1 warning(s)", c.Summary())
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.Warn(CategoryParameterIndex, "", "ignored")
	c.Error(CategoryParameterIndex, "", "ignored")

	assert.Empty(t, c.Diagnostics())
	assert.Zero(t, c.ErrorCount())
	assert.Equal(t, "no issues", c.Summary())
	assert.Empty(t, c.FormatAll())
}

func TestCollector_ByCategory(t *testing.T) {
	c := NewCollector()
	c.Warn(CategoryParameterIndex, "A.b", "one")
	c.Warn(CategorySchemaFallback, "User", "two")
	c.Warn(CategoryParameterIndex, "A.c", "three")

	got := c.ByCategory(CategoryParameterIndex)
	if assert.Len(t, got, 2) {
		assert.Equal(t, "A.b", got[0].Subject)
		assert.Equal(t, "A.c", got[1].Subject)
	}
}
