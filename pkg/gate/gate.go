// Package gate implements the change-scope classifier: given the set of
// file paths touched by a proposed change, it decides whether any of them
// falls inside the configured "code" locations. The decision gates whether
// the full test suite needs to run.
package gate

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// PatternSet is an ordered list of glob patterns identifying code
// locations, compiled once at load time. Matching is a disjunction, so
// pattern order never affects the result.
type PatternSet struct {
	patterns []string
}

// Compile validates the given glob patterns and returns a PatternSet.
// A malformed pattern is a configuration error: it is reported here,
// before any evaluation, and never surfaces from Evaluate. All invalid
// patterns are collected so the caller sees the full list at once.
func Compile(patterns []string) (*PatternSet, error) {
	if len(patterns) == 0 {
		return nil, errors.New("pattern set cannot be empty")
	}

	var errs *multierror.Error
	for _, p := range patterns {
		if p == "" {
			errs = multierror.Append(errs, errors.New("empty pattern"))
			continue
		}
		if !doublestar.ValidatePattern(p) {
			errs = multierror.Append(errs, errors.Errorf("invalid glob pattern: %q", p))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	ps := &PatternSet{patterns: make([]string, len(patterns))}
	copy(ps.patterns, patterns)
	return ps, nil
}

// MustCompile is like Compile but panics on invalid patterns. Intended for
// fixed pattern lists known at compile time.
func MustCompile(patterns []string) *PatternSet {
	ps, err := Compile(patterns)
	if err != nil {
		panic(err)
	}
	return ps
}

// Patterns returns a copy of the pattern list, in configured order.
func (ps *PatternSet) Patterns() []string {
	out := make([]string, len(ps.patterns))
	copy(out, ps.patterns)
	return out
}

// Result is the outcome of a single evaluation. It is derived, never
// stored by this package, and recomputed on every call.
type Result struct {
	// CodeChanged is true iff at least one changed path matches at least
	// one configured pattern.
	CodeChanged bool `json:"code_changed"`
	// MatchedPath and MatchedPattern identify the first match found.
	// Diagnostic only: which pair is reported depends on iteration order,
	// but whether a match exists does not.
	MatchedPath    string `json:"matched_path,omitempty"`
	MatchedPattern string `json:"matched_pattern,omitempty"`
	// Evaluated is the number of distinct paths considered.
	Evaluated int `json:"evaluated"`
}

// Evaluate reports whether any path in changes matches any pattern in the
// set. It is a pure function: no side effects, no error conditions, and
// identical inputs always yield identical output. An empty change set
// vacuously yields CodeChanged == false.
//
// Glob semantics follow doublestar: `*` matches within a single path
// segment, `**` matches across segments.
func (ps *PatternSet) Evaluate(changes []string) Result {
	res := Result{Evaluated: len(changes)}
	for _, path := range changes {
		for _, pattern := range ps.patterns {
			// Patterns are validated at Compile time, so Match cannot
			// fail here.
			ok, _ := doublestar.Match(pattern, path)
			if ok {
				res.CodeChanged = true
				res.MatchedPath = path
				res.MatchedPattern = pattern
				return res
			}
		}
	}
	return res
}

// Matches reports whether a single path is inside the pattern set.
func (ps *PatternSet) Matches(path string) bool {
	for _, pattern := range ps.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}
