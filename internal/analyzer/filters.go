package analyzer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ekerrors "github.com/elastickilla/elastickilla/internal/errors"
)

// MatchAll is the pattern used when none is given.
const MatchAll = "*"

const globMeta = `*?[]{}\`

// ResourceID returns the identifier the index uses for path: absolute,
// cleaned and lower-cased. It returns "" for a blank path.
func ResourceID(path string) string {
	if strings.TrimSpace(path) == "" {
		return ""
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	return strings.ToLower(abs)
}

// NormalizePattern lower-cases pattern and checks its syntax. A blank
// pattern means MatchAll.
func NormalizePattern(pattern string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return MatchAll, nil
	}
	if !doublestar.ValidatePattern(p) {
		return "", ekerrors.ValidationError("invalid file pattern: "+pattern, nil).
			WithDetail("pattern", pattern).
			WithSuggestion("Patterns match file names, e.g. *.txt or report-??.md")
	}
	return p, nil
}

// escapeName turns a file name into a pattern matching only that name.
func escapeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if strings.ContainsRune(globMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// literalName returns the single name a pattern matches, if it has no
// wildcards.
func literalName(pattern string) (string, bool) {
	var b strings.Builder
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case strings.ContainsRune(globMeta, r):
			return "", false
		}
		b.WriteRune(r)
	}
	return b.String(), true
}

// matchAny reports whether the base name of path matches one of the
// (already normalized) patterns.
func matchAny(patterns []string, path string) bool {
	name := strings.ToLower(filepath.Base(path))
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// listFiles returns the regular files directly inside dir that match one
// of patterns. A listing failure yields what could be read.
func listFiles(dir string, patterns []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	var files []string
	for _, e := range entries {
		if e.IsDir() || !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if matchAny(patterns, path) {
			files = append(files, path)
		}
	}
	if err != nil {
		return files, ekerrors.IOError(dir, err)
	}
	return files, nil
}
