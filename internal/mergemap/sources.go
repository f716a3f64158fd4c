package mergemap

// Source is one caller-supplied shape recognised at ingress. The set of
// implementations is closed: DirectPlaceholders, FlatFields and NestedFields.
type Source interface {
	// Tier orders sources: lower tiers are authoritative, higher tiers only fill gaps.
	Tier() Tier
	Entries() map[string]any
	source()
}

// Tier is the precedence class of a Source.
type Tier int

const (
	// TierAuthoritative values are written unconditionally.
	TierAuthoritative Tier = iota
	// TierFill values are written only for keys not yet present.
	TierFill
)

// DirectPlaceholders is a hand-curated placeholder map whose keys may already
// be brace-wrapped ("{{PROJECT}}").
type DirectPlaceholders map[string]any

func (DirectPlaceholders) Tier() Tier                { return TierAuthoritative }
func (d DirectPlaceholders) Entries() map[string]any { return d }
func (DirectPlaceholders) source()                   {}

// FlatFields is a generic field dump, e.g. from a no-code automation.
type FlatFields map[string]any

func (FlatFields) Tier() Tier                { return TierFill }
func (f FlatFields) Entries() map[string]any { return f }
func (FlatFields) source()                   {}

// NestedFields is a field object found inside a wrapping record, such as a
// RecordStore webhook payload ({"record": {"id": ..., "fields": {...}}}).
type NestedFields map[string]any

func (NestedFields) Tier() Tier                { return TierFill }
func (n NestedFields) Entries() map[string]any { return n }
func (NestedFields) source()                   {}

// detector recognises one shape in a decoded request body.
type detector func(body map[string]any) (Source, bool)

var (
	placeholderAliases = []string{"placeholders", "replacements"}
	fieldAliases       = []string{"fields", "fieldValues", "values"}
	nestedParents      = []string{"record", "data"}
)

// detectors run in precedence order; Detect keeps their order in its output.
var detectors = []detector{
	firstObject(placeholderAliases, func(m map[string]any) Source { return DirectPlaceholders(m) }),
	firstObject(fieldAliases, func(m map[string]any) Source { return FlatFields(m) }),
	detectNested,
}

func firstObject(aliases []string, wrap func(map[string]any) Source) detector {
	return func(body map[string]any) (Source, bool) {
		for _, alias := range aliases {
			if m, ok := body[alias].(map[string]any); ok {
				return wrap(m), true
			}
		}
		return nil, false
	}
}

// detectNested looks for record.fields / data.fields, falling back to a bare
// data object when it carries no "fields" key.
func detectNested(body map[string]any) (Source, bool) {
	for _, parent := range nestedParents {
		outer, ok := body[parent].(map[string]any)
		if !ok {
			continue
		}
		if inner, ok := outer["fields"].(map[string]any); ok {
			return NestedFields(inner), true
		}
		if _, hasFields := outer["fields"]; !hasFields && parent == "data" {
			return NestedFields(outer), true
		}
	}
	return nil, false
}

// Detect resolves a decoded body into its recognised sources, in precedence order.
func Detect(body map[string]any) []Source {
	var out []Source
	for _, d := range detectors {
		if s, ok := d(body); ok {
			out = append(out, s)
		}
	}
	return out
}
