package render

// ItemKey is the name an array directive binds each element to.
const ItemKey = "item"

// Render evaluates the template tree against ctx. Rendering does not fail:
// a leaf that cannot be evaluated yields a diagnostic string and the rest of
// the tree is unaffected. There are no cross-field dependencies; every field
// sees ctx, never a sibling's result.
func Render(n Node, ctx Context) Value {
	return renderNode(n, newScope(ctx))
}

func renderNode(n Node, s *scope) Value {
	switch n := n.(type) {
	case *Mapping:
		out := make(map[string]any, len(n.Fields))
		for k, f := range n.Fields {
			out[k] = renderNode(f, s)
		}
		return out
	case *Sequence:
		out := make([]any, len(n.Items))
		for i, item := range n.Items {
			out[i] = renderNode(item, s)
		}
		return out
	case *Expr:
		return n.eval(s)
	case *Literal:
		return n.Value
	case *Directive:
		return renderDirective(n, s)
	default:
		return nil
	}
}

func renderDirective(d *Directive, s *scope) Value {
	src := Resolve(s.vars, d.Path)
	switch d.Kind {
	case DirectiveArray:
		items, _ := src.([]any)
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, renderNode(d.Fields, newScope(Context{ItemKey: item})))
		}
		return out
	case DirectiveObject:
		var vars Context
		switch m := src.(type) {
		case map[string]any:
			vars = m
		case Context:
			vars = m
		default:
			vars = Context{}
		}
		return renderNode(d.Fields, newScope(vars))
	default:
		return nil
	}
}
