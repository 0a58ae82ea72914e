package gitfs

import "strings"

// Selector decides which files of a tree are sources.
// Paths are slash-separated and relative to the tree root.
type Selector struct {
	// Extensions the file name must end with. Empty allows any.
	Extensions []string

	// Markers of which at least one must appear in the path. Empty allows any.
	Markers []string

	// Whitelist of path components of which at least one must be present.
	// Empty allows any path.
	Whitelist []string

	// Blacklist of path components none of which may be present.
	Blacklist []string
}

// Accepts reports whether path is a source.
func (s Selector) Accepts(path string) bool {
	if len(s.Extensions) > 0 && !hasAnySuffix(path, s.Extensions) {
		return false
	}
	if len(s.Markers) > 0 && !containsAny(path, s.Markers) {
		return false
	}

	parts := strings.Split(path, "/")
	if len(s.Whitelist) > 0 && !anyIn(parts, s.Whitelist) {
		return false
	}
	return !anyIn(parts, s.Blacklist)
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func anyIn(parts, set []string) bool {
	for _, p := range parts {
		for _, v := range set {
			if p == v {
				return true
			}
		}
	}
	return false
}
