package render

// Prune returns a copy of v with empty values removed. Empty means nil,
// Missing, "", an empty sequence or an empty mapping.
//
// Mappings drop empty entries and collapse to Missing when nothing is left.
// Sequences drop empty elements but are never collapsed, so an empty list
// nested directly in a list is filtered while a top-level one is kept.
func Prune(v any) Value {
	switch t := v.(type) {
	case map[string]any:
		return pruneMap(t)
	case Context:
		return pruneMap(t)
	case []any:
		out := make([]any, 0, len(t))
		for _, item := range t {
			p := Prune(item)
			if isEmpty(p) {
				continue
			}
			out = append(out, p)
		}
		return out
	default:
		return v
	}
}

func pruneMap(m map[string]any) Value {
	out := make(map[string]any, len(m))
	for k, val := range m {
		p := Prune(val)
		if isEmpty(p) {
			continue
		}
		out[k] = p
	}
	if len(out) == 0 {
		return Missing
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil, missing:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case Context:
		return len(t) == 0
	default:
		return false
	}
}
