package render

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Value is a rendered value. It is always one of nil, string, int64, float64,
// bool, []any, map[string]any or Missing. Values decoded from YAML may also
// carry the other Go integer types.
type Value = any

// Kind classifies a Value.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "other"
	}
}

type missing struct{}

func (missing) String() string { return "<missing>" }

// MarshalJSON encodes Missing as null so it never leaks as an empty object.
func (missing) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Missing marks a value that could not be resolved. It is distinct from a
// present nil: a provider that returns "field": null resolves to nil, a
// provider that omits the field resolves to Missing.
var Missing Value = missing{}

// IsMissing reports whether v is the Missing marker.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

// KindOf returns the kind of v.
func KindOf(v any) Kind {
	switch v.(type) {
	case missing:
		return KindMissing
	case nil:
		return KindNull
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return KindNumber
	case bool:
		return KindBool
	case []any:
		return KindList
	case map[string]any, Context:
		return KindMap
	default:
		return KindOther
	}
}

// Normalize rewrites decoded JSON numbers in place: json.Number and integral
// float64 values become int64, other numbers float64. Maps and slices are
// walked recursively and returned.
func Normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = Normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = Normalize(val)
		}
		return t
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(string(t), 64); err == nil {
			return f
		}
		return string(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
		return t
	default:
		return v
	}
}

// Truthy interprets a capability flag from a backend definition. Strings are
// matched case-insensitively; "false", "0", "n", "no", "off" and "" are false.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil, missing:
		return false
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "", "false", "0", "n", "no", "off":
			return false
		}
		return true
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
