// Package changeset models the set of file paths touched by a proposed
// change and the collaborators that compute it: a local git diff, the
// GitHub compare API, or an explicit list supplied by the caller.
package changeset

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ChangeSet is a set of repository-relative file paths. Duplicates are
// not meaningful; insertion collapses them.
type ChangeSet struct {
	paths map[string]struct{}
}

// New creates a ChangeSet from the given paths. Empty strings are
// dropped, duplicates collapse, and leading "./" prefixes are stripped so
// every path is relative to the repository root.
func New(paths ...string) *ChangeSet {
	cs := &ChangeSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		cs.Add(p)
	}
	return cs
}

// Add inserts a path into the set, normalizing it first.
func (cs *ChangeSet) Add(path string) {
	path = normalize(path)
	if path == "" {
		return
	}
	cs.paths[path] = struct{}{}
}

// Contains reports whether the set holds the given path.
func (cs *ChangeSet) Contains(path string) bool {
	_, ok := cs.paths[normalize(path)]
	return ok
}

// Len returns the number of distinct paths in the set.
func (cs *ChangeSet) Len() int {
	return len(cs.paths)
}

// Empty reports whether no paths were touched. The gate treats this as
// "no code changed" rather than an error.
func (cs *ChangeSet) Empty() bool {
	return len(cs.paths) == 0
}

// Paths returns the paths in sorted order. Sorting keeps log output and
// history rows stable; the gate itself is order-insensitive.
func (cs *ChangeSet) Paths() []string {
	out := make([]string, 0, len(cs.paths))
	for p := range cs.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "./")
	return path
}

// FromReader reads newline-separated paths, as produced by
// `git diff --name-only` or supplied on stdin. Blank lines are skipped.
func FromReader(r io.Reader) (*ChangeSet, error) {
	cs := New()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cs.Add(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read change list")
	}
	return cs, nil
}
