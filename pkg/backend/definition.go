package backend

import (
	"fmt"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/render"
)

// Section names inside a definition.
const (
	sectionRequest  = "request"
	sectionResponse = "response"
	sectionConfig   = "config"
	sectionStatus   = "status"
	keyPoll         = "_poll"
)

// Definition describes how to call one provider for one kind of operation.
type Definition struct {
	Name string
	Kind api.Kind

	// Request renders into the outbound call: url, method, headers,
	// parameters, data and timeout.
	Request render.Node

	// Poll is the rendered-on-demand _poll block of the request section,
	// or nil when the provider answers synchronously.
	Poll render.Node

	// Response maps the raw provider payload to the normalized result.
	Response render.Node

	// Config holds free-form capability flags such as scrape: "false".
	Config map[string]any

	// Status, when set, looks up an asynchronous job by id.
	Status *Definition
}

// Flag returns a capability flag from the config section.
func (d *Definition) Flag(name string) (any, bool) {
	v, ok := d.Config[name]
	return v, ok
}

// Async reports whether the definition polls for its result.
func (d *Definition) Async() bool {
	return d.Poll != nil
}

func compileDefinition(kind api.Kind, name string, raw map[string]any) (*Definition, error) {
	def := &Definition{Name: name, Kind: kind}

	req, _ := raw[sectionRequest].(map[string]any)
	if req == nil {
		return nil, fmt.Errorf("%s: missing %s section", name, sectionRequest)
	}
	n, err := render.Compile(req)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", name, sectionRequest, err)
	}
	def.Request = n

	if poll, ok := req[keyPoll]; ok && poll != nil {
		n, err := render.Compile(poll)
		if err != nil {
			return nil, fmt.Errorf("%s.%s.%s: %w", name, sectionRequest, keyPoll, err)
		}
		def.Poll = n
	}

	resp, ok := raw[sectionResponse]
	if !ok {
		return nil, fmt.Errorf("%s: missing %s section", name, sectionResponse)
	}
	n, err = render.Compile(resp)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", name, sectionResponse, err)
	}
	def.Response = n

	if cfg, ok := raw[sectionConfig].(map[string]any); ok {
		def.Config = cfg
	}

	if status, ok := raw[sectionStatus].(map[string]any); ok {
		st, err := compileDefinition(kind, name+"."+sectionStatus, status)
		if err != nil {
			return nil, err
		}
		st.Name = name
		def.Status = st
	}
	return def, nil
}
