package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchesGlob checks if a file path matches any of the include patterns
// and does not match any of the exclude patterns. Paths and patterns are
// compared in slash form; an absolute file path is made relative to baseDir
// first so patterns stay project-relative.
func MatchesGlob(baseDir, filePath string, includePatterns []string, excludePatterns []string) bool {
	if len(includePatterns) == 0 {
		return false
	}

	filePath = relativeSlashPath(baseDir, filePath)

	for _, pattern := range excludePatterns {
		if globMatch(filePath, pattern) {
			return false
		}
	}
	for _, pattern := range includePatterns {
		if globMatch(filePath, pattern) {
			return true
		}
	}
	return false
}

// globMatch matches a slash path against a doublestar pattern. Patterns
// without a directory part match against the base name, so "*.go" selects
// every Go file regardless of depth.
func globMatch(filePath, pattern string) bool {
	pattern = filepath.ToSlash(strings.TrimPrefix(pattern, "./"))
	if ok, _ := doublestar.Match(pattern, filePath); ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		ok, _ := doublestar.Match(pattern, filepath.Base(filePath))
		return ok
	}
	return false
}

func relativeSlashPath(baseDir, filePath string) string {
	if baseDir != "" && filepath.IsAbs(filePath) {
		if rel, err := filepath.Rel(baseDir, filePath); err == nil && !strings.HasPrefix(rel, "..") {
			filePath = rel
		}
	}
	return filepath.ToSlash(filePath)
}
