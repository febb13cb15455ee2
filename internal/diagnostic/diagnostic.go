// Package diagnostic collects non-fatal findings raised while analyzing
// controllers and deriving schemas.
package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Category classifies diagnostics for filtering.
type Category string

const (
	CategoryParameterIndex      Category = "parameter-index"
	CategoryControllerDuplicate Category = "controller-duplicate"
	CategoryRouteUnresolved     Category = "route-unresolved"
	CategorySchemaFallback      Category = "schema-fallback"
	CategoryConfigInvalid       Category = "config-invalid"
	CategoryTypeCollision       Category = "type-collision"
)

// Diagnostic represents a structured diagnostic message.
type Diagnostic struct {
	Severity Severity
	Category Category
	// Subject locates the finding: a source file, a "Controller.Handler"
	// pair, or a type name.
	Subject string
	Message string
	Hint    string
}

// String formats the diagnostic for display.
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Subject != "" {
		sb.WriteString(d.Subject)
		sb.WriteString(" - ")
	}
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	if d.Category != "" {
		fmt.Fprintf(&sb, "[%s] ", d.Category)
	}
	sb.WriteString(d.Message)
	if d.Hint != "" {
		sb.WriteString("\n  hint: ")
		sb.WriteString(d.Hint)
	}
	return sb.String()
}

// Collector collects diagnostics during one run. A nil *Collector is valid
// and discards everything.
type Collector struct {
	diagnostics []Diagnostic
}

// NewCollector creates a new diagnostic collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Warn adds a warning diagnostic.
func (c *Collector) Warn(category Category, subject, message string) {
	c.WarnWithHint(category, subject, message, "")
}

// WarnWithHint adds a warning with a suggestion.
func (c *Collector) WarnWithHint(category Category, subject, message, hint string) {
	if c == nil {
		return
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: SeverityWarning,
		Category: category,
		Subject:  subject,
		Message:  message,
		Hint:     hint,
	})
}

// Error adds an error diagnostic.
func (c *Collector) Error(category Category, subject, message string) {
	if c == nil {
		return
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: SeverityError,
		Category: category,
		Subject:  subject,
		Message:  message,
	})
}

// Diagnostics returns all collected diagnostics.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	return c.diagnostics
}

// ByCategory returns the diagnostics recorded under category.
func (c *Collector) ByCategory(category Category) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// ErrorCount returns the number of error diagnostics.
func (c *Collector) ErrorCount() int {
	return c.count(SeverityError)
}

// WarningCount returns the number of warning diagnostics.
func (c *Collector) WarningCount() int {
	return c.count(SeverityWarning)
}

func (c *Collector) count(sev Severity) int {
	n := 0
	for _, d := range c.Diagnostics() {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// FormatAll formats all diagnostics as a multi-line string.
func (c *Collector) FormatAll() string {
	var sb strings.Builder
	for _, d := range c.Diagnostics() {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Summary returns a summary line like "1 error(s), 2 warning(s)".
func (c *Collector) Summary() string {
	warnings := c.WarningCount()
	errs := c.ErrorCount()

	var parts []string
	if errs > 0 {
		parts = append(parts, fmt.Sprintf("%d error(s)", errs))
	}
	if warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning(s)", warnings))
	}
	if len(parts) == 0 {
		return "no issues"
	}
	return strings.Join(parts, ", ")
}
