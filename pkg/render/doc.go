// Package render implements the declarative template interpreter that turns
// backend definitions into concrete outbound requests and normalized results.
//
// A backend definition is compiled once into a template tree (Node). Each
// node is one of:
//
//   - *Mapping: an object whose non-reserved keys are rendered independently
//   - *Sequence: a list rendered element by element
//   - *Expr: a string leaf evaluated as a Jinja-style template (pongo2)
//   - *Literal: a non-string scalar returned unchanged
//   - *Directive: a reserved-key object selecting "array" or "object" traversal
//
// Rendering never fails as a whole. A leaf that cannot be evaluated renders
// as a "Template Error: ..." diagnostic string and its siblings are unaffected.
//
// The package also provides the two helpers the interpreter is built on:
// Resolve, which extracts a value from nested data by dotted path, and
// Prune, which strips empty values from a structure before it is sent to a
// provider.
package render
