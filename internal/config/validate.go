package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap/zapcore"
)

// ValidationError lists every problem found in a config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// ValidationResult holds config validation results.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// IsValid returns true if there are no errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validate checks the config and reports all problems in one
// *ValidationError.
func (c *Config) Validate() error {
	result := c.ValidateDetailed()
	if result.IsValid() {
		return nil
	}
	return &ValidationError{Problems: result.Errors}
}

// ValidateDetailed performs thorough config validation with suggestions.
func (c *Config) ValidateDetailed() *ValidationResult {
	result := &ValidationResult{}
	fail := func(format string, args ...any) {
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}
	warn := func(format string, args ...any) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(format, args...))
	}

	// Project
	if c.Project.Dir == "" {
		fail("project.dir: must not be empty")
	} else if info, err := os.Stat(c.Project.Dir); err != nil || !info.IsDir() {
		fail("project.dir: %q is not a directory", c.Project.Dir)
	}

	// Controllers
	patterns := strings.Split(c.Controllers.Pattern, ",")
	if strings.TrimSpace(c.Controllers.Pattern) == "" {
		fail("controllers.pattern: at least one pattern required")
		patterns = nil
	}
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		switch {
		case pattern == "":
			fail("controllers.pattern: empty pattern in %q", c.Controllers.Pattern)
		case !doublestar.ValidatePattern(pattern):
			fail("controllers.pattern: %q is not a valid glob", pattern)
		case !strings.Contains(pattern, "*") && !strings.HasSuffix(pattern, ".go"):
			warn("controllers.pattern: pattern %q doesn't contain a wildcard or .go extension, did you mean %q?",
				pattern, strings.TrimSuffix(pattern, "/")+"/**/*.go")
		}
	}
	for _, pattern := range c.Controllers.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			fail("controllers.exclude: %q is not a valid glob", pattern)
		}
	}
	if c.Controllers.Suffix == "" {
		fail("controllers.suffix: must not be empty")
	}

	// Routes
	switch ext := filepath.Ext(c.Routes.Manifest); {
	case c.Routes.Manifest == "":
		fail("routes.manifest: must not be empty")
	case ext != ".json" && ext != ".yaml" && ext != ".yml":
		fail("routes.manifest: extension %q is not supported, expected .json, .yaml, or .yml", ext)
	}

	// Output
	if c.Output.Path == "" {
		fail("output.path: must not be empty")
	} else if ext := filepath.Ext(c.Output.Path); ext != ".ts" {
		warn("output.path: extension %q is unusual, expected .ts", ext)
	}
	if !isIdentifier(c.Output.ClientName) {
		fail("output.clientName: %q is not a valid TypeScript identifier", c.Output.ClientName)
	}

	// Analysis
	for _, name := range c.Analysis.Unwrap {
		if !isIdentifier(name) {
			fail("analysis.unwrap: %q is not a type name", name)
		}
	}
	if c.Analysis.CacheSize < 0 {
		fail("analysis.cacheSize: must not be negative, got %d", c.Analysis.CacheSize)
	}

	// Log
	if _, err := zapcore.ParseLevel(c.Log.Level); c.Log.Level != "" && err != nil {
		fail("log.level: invalid value %q, must be debug, info, warn, or error", c.Log.Level)
	}

	return result
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}
