package backend

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

// documentSchema is compiled once; a broken embedded schema is a build
// defect, so it panics.
var documentSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("backend: unmarshal schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("backends.schema.json", doc); err != nil {
		panic(fmt.Sprintf("backend: add schema resource: %v", err))
	}
	sch, err := c.Compile("backends.schema.json")
	if err != nil {
		panic(fmt.Sprintf("backend: compile schema: %v", err))
	}
	return sch
}

// validateDocument checks a decoded YAML document against the definition
// schema. The document is re-encoded as JSON so that numbers reach the
// validator as json.Number.
func validateDocument(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := documentSchema.Validate(inst); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
