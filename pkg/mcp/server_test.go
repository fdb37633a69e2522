package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

type fakeBackends map[api.Kind][]string

func (b fakeBackends) Names(kind api.Kind) []string { return b[kind] }

// connect starts s on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = s.MCPServer().Run(ctx, serverTransport)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected one content part, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want text", res.Content[0])
	}
	return tc.Text
}

func TestListTools(t *testing.T) {
	session := connect(t, New(transport.ExecutorFunc(nil), fakeBackends{}, "test"))

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	got := strings.Join(names, ",")
	for _, want := range []string{"search", "scrape", "list_backends"} {
		if !strings.Contains(got, want) {
			t.Errorf("tools %q missing %q", got, want)
		}
	}
}

func TestSearchTool(t *testing.T) {
	var op *transport.Operation
	exec := transport.ExecutorFunc(func(_ context.Context, o *transport.Operation) (map[string]any, error) {
		op = o
		return map[string]any{"backend": "brave", "success": true, "data": []any{}}, nil
	})
	session := connect(t, New(exec, fakeBackends{}, "test"))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search",
		Arguments: map[string]any{"query": "golang", "scrape": true, "backend": "brave,tavily"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", textOf(t, res))
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(textOf(t, res)), &result); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if result["backend"] != "brave" {
		t.Errorf("backend = %v", result["backend"])
	}

	if op.Kind != api.KindSearch || strings.Join(op.Backends, ",") != "brave,tavily" {
		t.Errorf("op = %+v", op)
	}
	if op.Request["limit"] != int64(api.DefaultSearchLimit) {
		t.Errorf("limit = %v, want default", op.Request["limit"])
	}
	opts, _ := op.Request["scrapeOptions"].(map[string]any)
	if formats, _ := opts["formats"].([]any); len(formats) != 1 {
		t.Errorf("scrapeOptions = %v", op.Request["scrapeOptions"])
	}
}

func TestScrapeToolErrors(t *testing.T) {
	exec := transport.ExecutorFunc(func(context.Context, *transport.Operation) (map[string]any, error) {
		return nil, api.NewUpstreamError(503, "down")
	})
	session := connect(t, New(exec, fakeBackends{}, "test"))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"invalid url", map[string]any{"url": "not-a-url"}, "invalid_request"},
		{"upstream failure", map[string]any{"url": "https://example.com"}, "upstream_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "scrape", Arguments: tt.args})
			if err != nil {
				t.Fatalf("CallTool failed: %v", err)
			}
			if !res.IsError {
				t.Fatal("expected tool error")
			}
			if text := textOf(t, res); !strings.HasPrefix(text, tt.want) {
				t.Errorf("error text = %q, want prefix %q", text, tt.want)
			}
		})
	}
}

func TestListBackendsTool(t *testing.T) {
	session := connect(t, New(transport.ExecutorFunc(nil), fakeBackends{api.KindScrape: {"jina", "firecrawl"}}, "test"))

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "list_backends", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	var got map[string][]string
	if err := json.Unmarshal([]byte(textOf(t, res)), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if strings.Join(got["scrape"], ",") != "jina,firecrawl" {
		t.Errorf("scrape = %v", got["scrape"])
	}
}
