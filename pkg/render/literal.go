package render

import (
	"errors"
	"math"
	"strconv"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// ParseLiteral reinterprets rendered template text as a literal value. It
// recognizes integers, floats, booleans (true/True, false/False), null/None,
// quoted strings and list or mapping literals. Text that is not exactly one
// literal reports false and must be used as a plain string. ParseLiteral
// never panics.
func ParseLiteral(text string) (v Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()

	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}
	switch s {
	case "true", "True":
		return true, true
	case "false", "False":
		return false, true
	case "null", "None":
		return nil, true
	}

	switch s[0] {
	case '[', '{', '"', '\'':
		return parseCompound(s)
	}
	return parseNumber(s)
}

func parseNumber(s string) (Value, bool) {
	digits := strings.TrimLeft(s, "+-")
	if digits == "" || len(s)-len(digits) > 1 {
		return nil, false
	}
	c := digits[0]
	if (c < '0' || c > '9') && c != '.' {
		return nil, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		// Leading zeros are not a number ("007", zip codes).
		if len(digits) > 1 && digits[0] == '0' {
			return nil, false
		}
		return i, true
	}
	// An integer beyond int64 stays text rather than losing digits as a float.
	if errors.Is(err, strconv.ErrRange) {
		return nil, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, false
	}
	return f, true
}

func parseCompound(s string) (Value, bool) {
	var out any
	if err := json5.Unmarshal([]byte(pythonToJSON(s)), &out); err != nil {
		return nil, false
	}
	return Normalize(out), true
}

// pythonToJSON rewrites a Python-style literal, as produced when a template
// interpolates a list or dict, into JSON: single-quoted strings become
// double-quoted ones and the bare words True, False and None outside of
// strings become true, false and null.
func pythonToJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			j := i + 1
			for j < len(s) && s[j] != '"' {
				if s[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(s))
			b.WriteString(s[i:j])
			i = j
		case c == '\'':
			i = singleQuoted(&b, s, i+1)
		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

// singleQuoted writes the single-quoted string whose body starts at s[i] as
// a JSON string and returns the index after its closing quote. An
// unterminated string is written without a closing quote so decoding fails.
func singleQuoted(b *strings.Builder, s string, i int) int {
	b.WriteByte('"')
	for i < len(s) {
		c := s[i]
		switch {
		case c == '\'':
			b.WriteByte('"')
			return i + 1
		case c == '\\' && i+1 < len(s):
			if s[i+1] == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteString(s[i : i+2])
			}
			i += 2
			continue
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
		i++
	}
	return i
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
