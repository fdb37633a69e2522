package render

import (
	"os"
	"strings"
)

// Context is the variable scope a template tree is rendered against.
type Context map[string]any

// Overlay merges layers into a new Context. Later layers overwrite keys of
// earlier ones; nested mappings are replaced, not merged.
func Overlay(layers ...map[string]any) Context {
	size := 0
	for _, l := range layers {
		size += len(l)
	}
	ctx := make(Context, size)
	for _, l := range layers {
		for k, v := range l {
			ctx[k] = v
		}
	}
	return ctx
}

// Environ returns the process environment as a context layer, so definitions
// can reference secrets such as {{ TAVILY_API_KEY }}.
func Environ() map[string]any {
	env := os.Environ()
	out := make(map[string]any, len(env))
	for _, kv := range env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
