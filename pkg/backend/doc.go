// Package backend loads backend definitions: the declarative documents that
// describe how to call one provider for one kind of operation.
//
// Definitions live in one YAML document per kind (search.yaml, scrape.yaml,
// batch_scrape.yaml, extract.yaml, deep_research.yaml), each mapping a
// backend name to its request, response and optional config sections. A
// document is validated against a JSON Schema and compiled into template
// trees once at startup. The resulting Store is read-only and safe for
// concurrent use.
package backend
