// Package strings holds small helpers for the id lists linked-record fields carry.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved and the
// result is never nil.
func DedupeAndTrim(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// LinkedIDs reads a linked-record field value. The record store returns
// links as a JSON array of ids; callers sometimes send a single id string.
// Non-string elements are ignored.
func LinkedIDs(v any) []string {
	switch t := v.(type) {
	case []string:
		return DedupeAndTrim(t)
	case []any:
		ids := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				ids = append(ids, s)
			}
		}
		return DedupeAndTrim(ids)
	case string:
		return DedupeAndTrim([]string{t})
	default:
		return []string{}
	}
}
