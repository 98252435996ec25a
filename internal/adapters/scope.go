package adapters

import (
	"github.com/bmatcuk/doublestar/v4"
)

// Scope restricts which containers (Jira projects, Confluence spaces,
// Bitbucket project/repo slugs) an adapter may surface, as glob patterns
// like "TEAM-*" or "platform/**". An empty scope allows everything.
type Scope struct {
	Patterns []string
}

// Allows reports whether the given key matches the scope.
func (s Scope) Allows(key string) bool {
	if len(s.Patterns) == 0 {
		return true
	}
	for _, p := range s.Patterns {
		if ok, err := doublestar.Match(p, key); err == nil && ok {
			return true
		}
	}
	return false
}

// FilterItems drops items whose container key is outside the scope.
func (s Scope) FilterItems(items []ResultItem, keyOf func(ResultItem) string) []ResultItem {
	if len(s.Patterns) == 0 {
		return items
	}
	var out []ResultItem
	for _, it := range items {
		if s.Allows(keyOf(it)) {
			out = append(out, it)
		}
	}
	return out
}
