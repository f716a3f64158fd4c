// Package canonical turns loosely-typed caller values into the single scalar form
// the reconciliation engine works with, and canonicalizes placeholder keys and
// domain identities.
//
// Nothing in this package returns an error or panics: malformed input degrades
// to a null Value or an empty string and the caller decides what that means.
package canonical

import (
	"encoding/json"
	"strings"
)

// Value is a canonical scalar: either a non-empty trimmed string or null.
type Value struct {
	Str   string
	Valid bool
}

// Null is the null Value.
var Null = Value{}

// String builds a Value from s. Empty and whitespace-only strings collapse to null.
func String(s string) Value {
	s = strings.TrimSpace(s)
	if s == "" {
		return Null
	}
	return Value{Str: s, Valid: true}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return !v.Valid
}

// OrEmpty returns the string content, or "" for null.
func (v Value) OrEmpty() string {
	if !v.Valid {
		return ""
	}
	return v.Str
}

// MarshalJSON encodes null values as JSON null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Str)
}

// UnmarshalJSON accepts any JSON value and coerces it.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*v = Null
		return nil
	}
	*v = Coerce(raw)
	return nil
}
