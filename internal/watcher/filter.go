package watcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Filter selects upstream identifiers. Every include pattern must match, then an identifier
// matching any exclude pattern is dropped, then the optional semver constraint applies.
// Patterns match at the start of the identifier.
type Filter struct {
	includes   []*regexp.Regexp
	excludes   []*regexp.Regexp
	constraint *semver.Constraints
}

// NewFilter compiles include/exclude patterns and an optional semver constraint
func NewFilter(includes, excludes []string, constraint string) (*Filter, error) {
	f := &Filter{}
	var err error

	if f.includes, err = compilePatterns(includes); err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	if f.excludes, err = compilePatterns(excludes); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	if strings.TrimSpace(constraint) != "" {
		if f.constraint, err = semver.NewConstraint(constraint); err != nil {
			return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
		}
	}
	return f, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(`^(?:` + pattern + `)`)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Match reports whether id survives the filter
func (f *Filter) Match(id string) bool {
	if f == nil {
		return true
	}
	for _, re := range f.includes {
		if !re.MatchString(id) {
			return false
		}
	}
	for _, re := range f.excludes {
		if re.MatchString(id) {
			return false
		}
	}
	if f.constraint != nil {
		version, err := semver.NewVersion(id)
		if err != nil {
			return false
		}
		return f.constraint.Check(version)
	}
	return true
}

// Apply returns the items whose identifier survives the filter, keeping their order.
func Apply[T any](f *Filter, items []T, id func(T) string) []T {
	kept := make([]T, 0, len(items))
	for _, item := range items {
		if f.Match(id(item)) {
			kept = append(kept, item)
		}
	}
	return kept
}
