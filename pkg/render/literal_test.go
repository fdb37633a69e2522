package render

import (
	"reflect"
	"testing"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in     string
		want   any
		wantOK bool
	}{
		{"5", int64(5), true},
		{"-12", int64(-12), true},
		{" 42 ", int64(42), true},
		{"3.5", 3.5, true},
		{"1e3", 1000.0, true},
		{"true", true, true},
		{"True", true, true},
		{"False", false, true},
		{"null", nil, true},
		{"None", nil, true},
		{`"quoted"`, "quoted", true},
		{`'single'`, "single", true},
		{"[1, 2, 3]", []any{int64(1), int64(2), int64(3)}, true},
		{"['a', 'b']", []any{"a", "b"}, true},
		{`{"k": 1}`, map[string]any{"k": int64(1)}, true},
		{"{'ok': True, 'v': None}", map[string]any{"ok": true, "v": nil}, true},
		{"{'msg': 'True story'}", map[string]any{"msg": "True story"}, true},
		{`['it\'s', 'say "hi"']`, []any{"it's", `say "hi"`}, true},
		{`{"a": 'b', 'c': [None, "d's"]}`, map[string]any{"a": "b", "c": []any{nil, "d's"}}, true},
		{"9223372036854775807", int64(9223372036854775807), true},

		{"", nil, false},
		{"hello", nil, false},
		{"007", nil, false},
		{"1-2", nil, false},
		{"inf", nil, false},
		{"NaN", nil, false},
		{"[1, 2", nil, false},
		{"['a', 'b", nil, false},
		{"'hello' world", nil, false},
		{"12345678901234567890", nil, false},
		{"golang tutorials", nil, false},
		{"https://example.com", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLiteral(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseLiteral(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseLiteral(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		in   any
		want bool
	}{
		{nil, false},
		{Missing, false},
		{false, false},
		{true, true},
		{"false", false},
		{"False", false},
		{"0", false},
		{"n", false},
		{"no", false},
		{"", false},
		{"true", true},
		{"yes", true},
		{0, false},
		{int64(1), true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.in); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
