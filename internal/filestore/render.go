package filestore

import (
	"regexp"
	"slices"

	"opsbridge/internal/mergemap"
	"opsbridge/pkg/canonical"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// Render replaces every {{ key }} token whose normalized key is in m. Null
// values render as the empty string. Tokens with no entry are left as they
// are and their normalized keys are returned, sorted and deduplicated.
func Render(template string, m mergemap.Map) (string, []string) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := canonical.NormalizeKey(token)
		v, ok := m[key]
		if !ok {
			missing = append(missing, key)
			return token
		}
		return v.OrEmpty()
	})
	slices.Sort(missing)
	return out, slices.Compact(missing)
}
