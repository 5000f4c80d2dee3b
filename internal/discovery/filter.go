package discovery

import (
	"path/filepath"
	"strings"

	"navcheck/internal/domain"
)

// Filter filters navigation cases by name pattern
type Filter struct{}

// NewFilter creates a new Filter
func NewFilter() *Filter {
	return &Filter{}
}

// FilterByName keeps the cases whose name or case file name matches pattern.
// Supports patterns like "*checkout*" or "home.nav.yaml"
func (f *Filter) FilterByName(cases []domain.NavigationCase, pattern string) []domain.NavigationCase {
	if pattern == "" {
		return cases
	}

	var filtered []domain.NavigationCase
	for _, c := range cases {
		if MatchName(pattern, c.Name) || MatchName(pattern, filepath.Base(c.File)) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// FilterFailed keeps the cases listed as unresolved failures
func (f *Filter) FilterFailed(cases []domain.NavigationCase, failures []domain.CaseFailure) []domain.NavigationCase {
	failed := make(map[string]bool, len(failures))
	for _, failure := range failures {
		if !failure.Resolved {
			failed[failureKey(failure.FilePath, failure.CaseName)] = true
		}
	}

	var filtered []domain.NavigationCase
	for _, c := range cases {
		if failed[failureKey(c.File, c.Name)] {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func failureKey(file, name string) string {
	if abs, err := filepath.Abs(file); err == nil {
		file = abs
	}
	return file + "\x00" + name
}

// MatchName matches name against a wildcard pattern
func MatchName(pattern, name string) bool {
	// Try to match using filepath.Match (supports * and ? wildcards)
	if matched, err := filepath.Match(pattern, name); err == nil && matched {
		return true
	}

	// If pattern contains wildcards but filepath.Match didn't match,
	// try a more flexible substring match for patterns like "*checkout*"
	if strings.Contains(pattern, "*") {
		hasNonEmptyPart := false
		for _, part := range strings.Split(pattern, "*") {
			if part == "" {
				continue
			}
			hasNonEmptyPart = true
			if !strings.Contains(name, part) {
				return false
			}
		}
		return hasNonEmptyPart
	}

	// If no wildcards, do a simple contains check
	if !strings.Contains(pattern, "?") {
		return strings.Contains(name, pattern)
	}
	return false
}
