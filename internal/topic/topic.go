// Package topic implements Ralph's dotted, glob-matchable routing keys.
package topic

import "strings"

// globWildcard is the single segment that matches any topic whatsoever,
// regardless of its own segment count.
const globWildcard = "*"

// Topic is a dotted routing key, e.g. "build.task". It is an immutable
// value object: two Topics built from the same string compare equal and
// hash identically when used as a map key.
type Topic string

// New constructs a Topic from a raw string. Construction never fails —
// Topic places no constraints on its contents beyond what callers choose
// to enforce (the dispatcher rejects empty or quote-containing topics at
// the edges; Topic itself is a plain value).
func New(s string) Topic {
	return Topic(s)
}

// String returns the topic's wire representation.
func (t Topic) String() string {
	return string(t)
}

// IsGlobalWildcard reports whether t is the lone "*" pattern, which
// matches every topic regardless of segment count.
func (t Topic) IsGlobalWildcard() bool {
	return string(t) == globWildcard
}

// Matches reports whether pattern t matches concrete topic other. The
// global wildcard "*" matches anything. An exact string match always
// succeeds. Otherwise both are split on ".": if the segment counts
// differ, there is no match; each pattern segment must then be either
// "*" or structurally equal to the corresponding segment of other.
func (t Topic) Matches(other Topic) bool {
	if t.IsGlobalWildcard() {
		return true
	}
	if t == other {
		return true
	}

	patternSegs := strings.Split(string(t), ".")
	otherSegs := strings.Split(string(other), ".")
	if len(patternSegs) != len(otherSegs) {
		return false
	}
	for i, seg := range patternSegs {
		if seg == globWildcard {
			continue
		}
		if seg != otherSegs[i] {
			return false
		}
	}
	return true
}
