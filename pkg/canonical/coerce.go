package canonical

import (
	"encoding/json"
	"strconv"
)

// Coerce converts an arbitrarily shaped JSON value into a canonical Value.
//
//   - nil → null
//   - string → trimmed, empty → null
//   - number → decimal representation
//   - array → element 0 only, coerced recursively; later elements are dropped
//   - object → its "name", else its "value", else its JSON serialization
//   - anything else (bool, channels, ...) → null
func Coerce(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case json.Number:
		return String(t.String())
	case float64:
		return String(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return String(strconv.FormatFloat(float64(t), 'f', -1, 32))
	case int:
		return String(strconv.Itoa(t))
	case int32:
		return String(strconv.FormatInt(int64(t), 10))
	case int64:
		return String(strconv.FormatInt(t, 10))
	case uint:
		return String(strconv.FormatUint(uint64(t), 10))
	case uint32:
		return String(strconv.FormatUint(uint64(t), 10))
	case uint64:
		return String(strconv.FormatUint(t, 10))
	case []any:
		if len(t) == 0 {
			return Null
		}
		return Coerce(t[0])
	case []string:
		if len(t) == 0 {
			return Null
		}
		return String(t[0])
	case map[string]any:
		return coerceObject(t)
	default:
		return Null
	}
}

// coerceObject applies the name → value → serialize precedence. Linked-record
// and single-select cells arrive as {"id": ..., "name": ...}; form answers as
// {"value": ...}.
func coerceObject(obj map[string]any) Value {
	if name, ok := obj["name"].(string); ok {
		if v := String(name); v.Valid {
			return v
		}
	}
	if value, ok := obj["value"].(string); ok {
		if v := String(value); v.Valid {
			return v
		}
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		return Null
	}
	return String(string(encoded))
}

// CoerceFields coerces every value of a field map, dropping nulls and
// whitespace-only keys. Keys keep their spelling; RecordStore field names are
// case-sensitive.
func CoerceFields(fields map[string]any) map[string]string {
	out := make(map[string]string, len(fields))
	for k, raw := range fields {
		key := trimKey(k)
		if key == "" {
			continue
		}
		if v := Coerce(raw); v.Valid {
			out[key] = v.Str
		}
	}
	return out
}
