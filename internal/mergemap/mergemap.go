// Package mergemap combines the placeholder and field shapes automation callers
// send into one canonical key → value map.
package mergemap

import (
	"sort"

	"opsbridge/pkg/canonical"
)

// Map is keyed by canonical.NormalizeKey output.
type Map map[string]canonical.Value

// Build detects the sources in body and merges them. See Merge for precedence.
func Build(body map[string]any) Map {
	return Merge(Detect(body)...)
}

// Merge folds sources into a Map. Authoritative sources are written first and
// unconditionally; fill sources are applied afterwards, in the given order, and
// never overwrite a key that is already present, even when the present value
// is null.
func Merge(sources ...Source) Map {
	out := make(Map)
	for _, tier := range []Tier{TierAuthoritative, TierFill} {
		for _, src := range sources {
			if src == nil || src.Tier() != tier {
				continue
			}
			entries := src.Entries()
			for _, rawKey := range sortedKeys(entries) {
				key := canonical.NormalizeKey(rawKey)
				if key == "" {
					continue
				}
				if tier == TierFill {
					if _, exists := out[key]; exists {
						continue
					}
				}
				out[key] = canonical.Coerce(entries[rawKey])
			}
		}
	}
	return out
}

// sortedKeys makes collisions inside one source ("{{PROJECT}}" and "project")
// resolve the same way on every call.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the map keys sorted, for stable logging and responses.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Strings returns a plain map with null values rendered as "".
func (m Map) Strings() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.OrEmpty()
	}
	return out
}
