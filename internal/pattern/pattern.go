// Package pattern implements the wildcard path matching used by the cache
// and compression exclusion rules.
package pattern

import (
	"fmt"
	"strings"
)

// Validate rejects patterns the matcher cannot interpret. Patterns are
// validated once at configuration time so per-request matching never fails.
func Validate(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty path pattern")
	}
	if !strings.HasPrefix(pattern, "/") && !strings.HasPrefix(pattern, "*") {
		return fmt.Errorf("path pattern %q must start with '/' or '*'", pattern)
	}
	return nil
}

// Match reports whether path matches a wildcard pattern. '*' matches any run
// of characters, including '/'.
func Match(path, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return path == pattern
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	path = path[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(path, parts[i])
		if idx < 0 {
			return false
		}
		path = path[idx+len(parts[i]):]
	}
	return strings.HasSuffix(path, parts[len(parts)-1])
}

// MatchAny reports whether path matches any of the given patterns.
func MatchAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if Match(path, p) {
			return true
		}
	}
	return false
}
