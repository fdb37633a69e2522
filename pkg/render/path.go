package render

import (
	"strconv"
	"strings"
)

// Resolve extracts the value at path from data. The path is "."-delimited;
// a segment indexes a sequence when it is a non-negative in-bounds integer
// and looks up a key in a mapping otherwise. Anything else, including a
// lookup on a present nil, yields Missing. An empty path returns data.
func Resolve(data any, path string) Value {
	if path == "" {
		return data
	}
	cur := data
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return Missing
			}
			cur = v
		case Context:
			v, ok := node[seg]
			if !ok {
				return Missing
			}
			cur = v
		case []any:
			idx, ok := index(seg)
			if !ok || idx >= len(node) {
				return Missing
			}
			cur = node[idx]
		default:
			return Missing
		}
	}
	return cur
}

// index parses a segment of ASCII digits.
func index(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}
