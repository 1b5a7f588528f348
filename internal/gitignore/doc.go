// Package gitignore matches file names against gitignore-style rules.
//
// Subscriptions watch a single directory, so rules are applied to the
// base name of a file:
//
//   - Glob patterns (*.log, tmp-??, [abc].txt) as understood by doublestar
//   - Negation (!keep.log) re-includes a name an earlier rule ignored
//   - A leading / or **/ is accepted and dropped
//   - Directory rules (build/) and rules for nested paths (src/*.go)
//     never name a direct child file and are skipped
//   - Comments (#) and blank lines are skipped; \# and \! escape them
//
// The last matching rule decides. Matching is case-insensitive, like
// subscription patterns.
//
// Usage:
//
//	m := gitignore.New("*.log", "!important.log")
//	_ = m.AddFromFile(filepath.Join(dir, ".gitignore"))
//
//	if m.Match("/src/error.log") {
//	    // skip it
//	}
package gitignore
