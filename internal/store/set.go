package store

import "sort"

// Set is an unordered collection of distinct strings.
type Set map[string]struct{}

// NewSet returns a set holding the given values. Empty strings are kept;
// filtering is the caller's concern.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports whether v is a member of s.
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}

// Difference returns the members of s that are not in other.
func (s Set) Difference(other Set) []string {
	var out []string
	for v := range s {
		if !other.Has(v) {
			out = append(out, v)
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
