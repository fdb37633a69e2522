package render

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// singleRef matches a template that is exactly one variable reference, such
// as "{{ results }}" or "{{ data.items.0 }}".
var singleRef = regexp.MustCompile(`^\{\{\s*([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z0-9_-]+)*)\s*\}\}$`)

// identifier is the set of context keys visible to template expressions.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// compiled caches parsed templates by source text. Definitions are loaded
// once, so the set of sources is bounded.
var compiled sync.Map

// Expr is a string leaf of a template tree.
type Expr struct {
	Source string

	ref string
	tpl *pongo2.Template
	err error
}

// NewExpr parses src. A parse failure is kept and reported as a diagnostic
// each time the expression is evaluated.
func NewExpr(src string) *Expr {
	e := &Expr{Source: src}
	if m := singleRef.FindStringSubmatch(src); m != nil {
		e.ref = m[1]
	}
	if !strings.Contains(src, "{{") && !strings.Contains(src, "{%") {
		return e
	}
	e.tpl, e.err = compile(src)
	return e
}

func (*Expr) isNode() {}

// Eval renders the expression against ctx.
func (e *Expr) Eval(ctx Context) Value {
	return e.eval(newScope(ctx))
}

func (e *Expr) eval(s *scope) Value {
	if e.err != nil {
		return diagnostic(e.err)
	}
	if e.ref != "" {
		switch v := Resolve(s.vars, e.ref).(type) {
		case missing:
			if v, ok := ParseLiteral(e.ref); ok {
				return v
			}
		case string:
			return reinterpret(v)
		default:
			return v
		}
	}
	text := e.Source
	if e.tpl != nil {
		out, err := e.tpl.Execute(s.pongo())
		if err != nil {
			return diagnostic(err)
		}
		text = out
	}
	return reinterpret(text)
}

func reinterpret(text string) Value {
	if v, ok := ParseLiteral(text); ok {
		return v
	}
	return text
}

func diagnostic(err error) string {
	return fmt.Sprintf("Template Error: %s", err)
}

func compile(src string) (*pongo2.Template, error) {
	if t, ok := compiled.Load(src); ok {
		return t.(*pongo2.Template), nil
	}
	tpl, err := pongo2.FromString("{% autoescape off %}" + src + "{% endautoescape %}")
	if err != nil {
		return nil, err
	}
	compiled.Store(src, tpl)
	return tpl, nil
}

// scope is a render context together with its lazily built pongo2 view.
type scope struct {
	vars  Context
	view  pongo2.Context
	built bool
}

func newScope(vars Context) *scope {
	return &scope{vars: vars}
}

// pongo returns the variables visible to pongo2. Keys that are not valid
// identifiers (for example environment names containing dots) are dropped,
// since pongo2 rejects them for the whole execution.
func (s *scope) pongo() pongo2.Context {
	if s.built {
		return s.view
	}
	s.view = make(pongo2.Context, len(s.vars)+2)
	s.view["True"], s.view["False"] = true, false
	for k, v := range s.vars {
		if identifier.MatchString(k) {
			s.view[k] = v
		}
	}
	s.built = true
	return s.view
}
