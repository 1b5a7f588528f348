package gitignore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher holds compiled rules and provides thread-safe matching. A nil
// Matcher ignores nothing.
type Matcher struct {
	mu    sync.RWMutex
	rules []rule
}

// rule is a single pattern line.
type rule struct {
	pattern  string // lower-cased base-name glob
	negation bool   // starts with !
}

// New creates a matcher with the given pattern lines.
func New(patterns ...string) *Matcher {
	m := &Matcher{}
	for _, p := range patterns {
		m.AddPattern(p)
	}
	return m
}

// AddPattern adds one gitignore line. Lines that cannot match a file
// directly inside the directory are dropped.
func (m *Matcher) AddPattern(line string) {
	r, ok := parseRule(line)
	if !ok {
		return
	}
	m.mu.Lock()
	m.rules = append(m.rules, r)
	m.mu.Unlock()
}

// AddFromFile adds the rules in a gitignore file. A missing file adds
// nothing and is not an error.
func (m *Matcher) AddFromFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ignore file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read ignore file: %w", err)
	}
	return nil
}

// Len returns the number of rules in effect.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Match reports whether the file at path should be ignored. Only the
// base name is considered.
func (m *Matcher) Match(path string) bool {
	if m == nil {
		return false
	}
	name := strings.ToLower(filepath.Base(path))

	m.mu.RLock()
	defer m.mu.RUnlock()

	ignored := false
	for _, r := range m.rules {
		if ok, _ := doublestar.Match(r.pattern, name); ok {
			ignored = !r.negation
		}
	}
	return ignored
}

// parseRule compiles one line. ok is false for comments, blanks, invalid
// globs and rules that only name directories or nested paths.
func parseRule(line string) (rule, bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasSuffix(line, `\ `) {
		line = strings.TrimRight(line, " \t")
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	var r rule
	switch {
	case strings.HasPrefix(line, "!"):
		r.negation = true
		line = line[1:]
	case strings.HasPrefix(line, `\!`), strings.HasPrefix(line, `\#`):
		line = line[1:]
	}

	if strings.HasSuffix(line, "/") {
		return rule{}, false
	}
	line = strings.TrimPrefix(line, "/")
	for strings.HasPrefix(line, "**/") {
		line = line[3:]
	}
	if line == "" || strings.Contains(line, "/") {
		return rule{}, false
	}

	r.pattern = strings.ToLower(line)
	if !doublestar.ValidatePattern(r.pattern) {
		return rule{}, false
	}
	return r, true
}

// ParsePatterns extracts pattern lines from gitignore content, skipping
// blanks and comments.
func ParsePatterns(content string) []string {
	var patterns []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
