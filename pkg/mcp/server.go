// Package mcp exposes the gateway as a Model Context Protocol server. The
// search, scrape and list_backends tools run through the same Executor as
// the HTTP API, so backend selection, auth restrictions and the request
// log apply unchanged.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/selector"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// DefaultPath is where the streamable HTTP handler is mounted.
const DefaultPath = "/mcp"

// SearchInput is the argument object of the search tool.
type SearchInput struct {
	Query   string `json:"query" jsonschema:"the search query"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 5)"`
	Lang    string `json:"lang,omitempty" jsonschema:"result language (default en)"`
	Country string `json:"country,omitempty" jsonschema:"result country (default us)"`
	Scrape  bool   `json:"scrape,omitempty" jsonschema:"also scrape every result as markdown"`
	Backend string `json:"backend,omitempty" jsonschema:"comma-separated backend candidates; empty uses the configured default"`
}

// ScrapeInput is the argument object of the scrape tool.
type ScrapeInput struct {
	URL     string   `json:"url" jsonschema:"absolute http(s) URL of the page"`
	Formats []string `json:"formats,omitempty" jsonschema:"formats to return (default markdown)"`
	Backend string   `json:"backend,omitempty" jsonschema:"comma-separated backend candidates; empty uses the configured default"`
}

// Server wraps an MCP server bound to an Executor.
type Server struct {
	exec     transport.Executor
	backends transport.BackendLister
	server   *mcp.Server
}

// New creates the MCP server and registers its tools.
func New(exec transport.Executor, backends transport.BackendLister, version string) *Server {
	s := &Server{
		exec:     exec,
		backends: backends,
		server: mcp.NewServer(
			&mcp.Implementation{Name: "crawlrouter", Version: version},
			nil,
		),
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the web through the configured search backends",
	}, s.search)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "scrape",
		Description: "Fetch a web page and return its content, as markdown by default",
	}, s.scrape)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_backends",
		Description: "List the backend names available per operation",
	}, s.listBackends)

	return s
}

// MCPServer returns the underlying server, e.g. to run it on a custom
// transport.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// Handler returns the streamable HTTP handler.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

func (s *Server) search(ctx context.Context, _ *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, any, error) {
	req := api.SearchRequest{
		Query:   in.Query,
		Limit:   in.Limit,
		Lang:    in.Lang,
		Country: in.Country,
	}
	if in.Scrape {
		req.ScrapeOptions = &api.ScrapeOptions{Formats: []string{api.FormatMarkdown}}
	}
	if apiErr := api.ValidateSearchRequest(&req); apiErr != nil {
		return errorResult(apiErr), nil, nil
	}
	return s.run(ctx, api.KindSearch, in.Backend, &req)
}

func (s *Server) scrape(ctx context.Context, _ *mcp.CallToolRequest, in ScrapeInput) (*mcp.CallToolResult, any, error) {
	req := api.ScrapeRequest{URL: in.URL}
	req.Formats = in.Formats
	if apiErr := api.ValidateScrapeRequest(&req); apiErr != nil {
		return errorResult(apiErr), nil, nil
	}
	return s.run(ctx, api.KindScrape, in.Backend, &req)
}

func (s *Server) listBackends(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	out := make(map[string][]string, len(api.Kinds))
	for _, kind := range api.Kinds {
		out[string(kind)] = s.backends.Names(kind)
	}
	return jsonResult(out)
}

func (s *Server) run(ctx context.Context, kind api.Kind, backends string, req any) (*mcp.CallToolResult, any, error) {
	fields, err := api.Context(req)
	if err != nil {
		return nil, nil, err
	}
	result, err := s.exec.Execute(ctx, &transport.Operation{
		Kind:     kind,
		Backends: selector.SplitCSV(backends),
		Request:  fields,
	})
	if err != nil {
		return errorResult(api.AsAPIError(err)), nil, nil
	}
	return jsonResult(result)
}

// errorResult reports a failed operation as a tool error so the model can
// see and react to it.
func errorResult(err *api.APIError) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}
