package render

import (
	"fmt"
	"sort"
	"strings"
)

// Reserved keys. Any key starting with ReservedPrefix is a directive and is
// never copied to rendered output.
const (
	ReservedPrefix = "_"
	KeyType        = "_type"
	KeyPath        = "_path"
	KeyFields      = "fields"
)

// Node is a compiled template tree.
type Node interface {
	isNode()
}

// Mapping renders each of its fields against the same context.
type Mapping struct {
	Fields map[string]Node
}

// Sequence renders each element independently, preserving order.
type Sequence struct {
	Items []Node
}

// Literal is a non-string scalar that renders as itself.
type Literal struct {
	Value any
}

// DirectiveKind selects how a Directive traverses its source.
type DirectiveKind string

const (
	// DirectiveArray renders Fields once per element of the sequence at
	// Path, binding the element as "item".
	DirectiveArray DirectiveKind = "array"
	// DirectiveObject renders Fields with the mapping at Path as context.
	DirectiveObject DirectiveKind = "object"
)

// Directive is a mapping carrying a _type key.
type Directive struct {
	Kind   DirectiveKind
	Path   string
	Fields Node
}

func (*Mapping) isNode()   {}
func (*Sequence) isNode()  {}
func (*Literal) isNode()   {}
func (*Directive) isNode() {}

// Compile converts a decoded YAML or JSON document into a template tree.
func Compile(doc any) (Node, error) {
	return compileNode(doc, "")
}

func compileNode(doc any, at string) (Node, error) {
	switch t := doc.(type) {
	case map[string]any:
		return compileMapping(t, at)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = v
		}
		return compileMapping(m, at)
	case []any:
		seq := &Sequence{Items: make([]Node, 0, len(t))}
		for i, item := range t {
			n, err := compileNode(item, join(at, fmt.Sprint(i)))
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, n)
		}
		return seq, nil
	case string:
		return NewExpr(t), nil
	default:
		return &Literal{Value: t}, nil
	}
}

func compileMapping(m map[string]any, at string) (Node, error) {
	if kind, ok := m[KeyType]; ok {
		return compileDirective(m, kind, at)
	}
	mapping := &Mapping{Fields: make(map[string]Node, len(m))}
	for k, v := range m {
		if strings.HasPrefix(k, ReservedPrefix) {
			continue
		}
		n, err := compileNode(v, join(at, k))
		if err != nil {
			return nil, err
		}
		mapping.Fields[k] = n
	}
	return mapping, nil
}

func compileDirective(m map[string]any, kind any, at string) (Node, error) {
	d := &Directive{Kind: DirectiveKind(fmt.Sprint(kind))}
	if d.Kind != DirectiveArray && d.Kind != DirectiveObject {
		return nil, fmt.Errorf("%s: unknown directive type %q", label(at), d.Kind)
	}
	if p, ok := m[KeyPath]; ok && p != nil {
		s, ok := p.(string)
		if !ok {
			return nil, fmt.Errorf("%s: %s must be a string", label(at), KeyPath)
		}
		d.Path = s
	}
	fields, ok := m[KeyFields]
	if !ok {
		return nil, fmt.Errorf("%s: %s directive requires %q", label(at), d.Kind, KeyFields)
	}
	n, err := compileNode(fields, join(at, KeyFields))
	if err != nil {
		return nil, err
	}
	d.Fields = n
	return d, nil
}

// Keys returns the sorted field names of a Mapping, or nil for other nodes.
func Keys(n Node) []string {
	m, ok := n.(*Mapping)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}

func label(at string) string {
	if at == "" {
		return "<root>"
	}
	return at
}
