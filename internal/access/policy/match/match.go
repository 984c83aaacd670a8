// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

// Package match implements case-sensitive shell-style wildcard matching:
// `*` matches any sequence including the empty one, `?` exactly one
// character, `[seq]` one character in seq, `[!seq]` one character not in
// seq. Matching is full-string (no substring semantics) and `*` crosses
// `/`, so "Projects/Buck-IRB*" matches "Projects/Buck-IRB/Issues".
package match

import (
	"log/slog"

	"github.com/gobwas/glob"
)

// Pattern is a compiled wildcard pattern. The zero value matches only the
// empty string.
type Pattern struct {
	source string

	// g is nil when source failed to compile; Matches then falls back to
	// literal comparison.
	g glob.Glob
}

// Compile builds a Pattern. It never fails: a pattern the glob compiler
// rejects (an unterminated bracket expression, say) degrades to literal
// comparison, the way shell matchers treat malformed brackets, and is
// reported as a warning.
func Compile(source string) Pattern {
	g, err := glob.Compile(source)
	if err != nil {
		slog.Warn("wildcard pattern failed to compile, matching literally",
			"pattern", source,
			"error", err)
		return Pattern{source: source}
	}
	return Pattern{source: source, g: g}
}

// CompileAll compiles each source in order.
func CompileAll(sources []string) []Pattern {
	if len(sources) == 0 {
		return nil
	}
	patterns := make([]Pattern, 0, len(sources))
	for _, s := range sources {
		patterns = append(patterns, Compile(s))
	}
	return patterns
}

// Matches reports whether s matches the whole pattern.
func (p Pattern) Matches(s string) bool {
	if p.g == nil {
		return s == p.source
	}
	return p.g.Match(s)
}

// String returns the original pattern text.
func (p Pattern) String() string { return p.source }

// Matches compiles pattern and matches s against it. Callers on a hot path
// should Compile once and reuse the Pattern.
func Matches(s, pattern string) bool {
	return Compile(pattern).Matches(s)
}

// MatchesAny reports whether s matches at least one of patterns.
// An empty pattern slice matches nothing.
func MatchesAny(s string, patterns []Pattern) bool {
	for _, p := range patterns {
		if p.Matches(s) {
			return true
		}
	}
	return false
}
