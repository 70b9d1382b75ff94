package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern represents a compiled filter condition supporting substring and
// regex matching. Raw strings wrapped in slashes compile as regexes,
// anything else matches case-insensitive substrings.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// Match reports whether the pattern matches the supplied string.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Paths applies only and skip filters to notebook paths, preserving order.
// With no only patterns every path is a candidate; skip patterns then
// remove matches.
func Paths(paths []string, only, skip []Pattern) []string {
	if len(only) == 0 && len(skip) == 0 {
		return paths
	}
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		if len(only) > 0 && !matchesAny(path, only) {
			continue
		}
		if len(skip) > 0 && matchesAny(path, skip) {
			continue
		}
		result = append(result, path)
	}
	return result
}

func matchesAny(s string, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(s) {
			return true
		}
	}
	return false
}
