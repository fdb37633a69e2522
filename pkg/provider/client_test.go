package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/crawlrouter/pkg/api"
)

func TestCallPostJSON(t *testing.T) {
	var gotBody map[string]any
	var gotQuery, gotAuth, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success": true, "data": {"markdown": "# Hello"}, "count": 3}`)
	}))
	defer srv.Close()

	c := NewClient()
	out, err := c.Call(context.Background(), map[string]any{
		"url":        srv.URL + "/v1/scrape",
		"method":     "post",
		"headers":    map[string]any{"Authorization": "Bearer secret"},
		"parameters": map[string]any{"mode": "fast"},
		"data":       map[string]any{"url": "https://example.com", "formats": []any{"markdown"}},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}

	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotQuery != "mode=fast" {
		t.Errorf("query = %q, want mode=fast", gotQuery)
	}
	if gotBody["url"] != "https://example.com" {
		t.Errorf("body = %v", gotBody)
	}
	if out["success"] != true {
		t.Errorf("success = %v", out["success"])
	}
	if out["count"] != int64(3) {
		t.Errorf("count = %#v, want int64(3)", out["count"])
	}
	data, _ := out["data"].(map[string]any)
	if data["markdown"] != "# Hello" {
		t.Errorf("data.markdown = %v", data["markdown"])
	}
}

func TestCallGetQuery(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		io.WriteString(w, `{"results": []}`)
	}))
	defer srv.Close()

	_, err := NewClient().Call(context.Background(), map[string]any{
		"url": srv.URL + "/search",
		"parameters": map[string]any{
			"q":      "golang",
			"count":  int64(5),
			"safe":   true,
			"engine": []any{"a", "b"},
		},
		"data": map[string]any{"ignored": true},
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got.Method != http.MethodGet {
		t.Errorf("method = %s, want GET", got.Method)
	}
	q := got.URL.Query()
	if q.Get("q") != "golang" || q.Get("count") != "5" || q.Get("safe") != "true" {
		t.Errorf("query = %v", q)
	}
	if len(q["engine"]) != 2 {
		t.Errorf("engine = %v, want two values", q["engine"])
	}
	if got.ContentLength > 0 {
		t.Error("GET request should not carry a body")
	}
}

func TestCallReplyShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain text", "not json at all", "text"},
		{"json list", `[1, 2, 3]`, "data"},
		{"json string", `"ok"`, "data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			out, err := NewClient().Call(context.Background(), map[string]any{"url": srv.URL})
			if err != nil {
				t.Fatalf("Call: %v", err)
			}
			if _, ok := out[tt.want]; !ok || len(out) != 1 {
				t.Errorf("reply = %v, want single %q key", out, tt.want)
			}
		})
	}
}

func TestCallMissingURL(t *testing.T) {
	_, err := NewClient().Call(context.Background(), map[string]any{"method": "GET"})
	apiErr := api.AsAPIError(err)
	if apiErr.Type != api.ErrorTypeConfig {
		t.Fatalf("Type = %q, want config_error", apiErr.Type)
	}
	if apiErr.Message != "Missing URL in configuration" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestCallUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient().Call(context.Background(), map[string]any{
		"url":        srv.URL + "/scrape",
		"parameters": map[string]any{"api_key": "hunter2"},
	})
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.APIError", err)
	}
	if apiErr.Type != api.ErrorTypeUpstream {
		t.Errorf("Type = %q, want upstream_error", apiErr.Type)
	}
	if apiErr.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus() = %d, want 503", apiErr.HTTPStatus())
	}
	if strings.Contains(apiErr.Message, "hunter2") {
		t.Errorf("message leaks query string: %q", apiErr.Message)
	}
	if !strings.Contains(apiErr.Message, "overloaded") {
		t.Errorf("message should carry the body: %q", apiErr.Message)
	}
}

func TestCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient().Call(context.Background(), map[string]any{"url": addr})
	apiErr := api.AsAPIError(err)
	if apiErr.Type != api.ErrorTypeTransport {
		t.Fatalf("Type = %q, want transport_error (%v)", apiErr.Type, err)
	}
	if !strings.Contains(apiErr.Message, "Request error: ") {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestCallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	start := time.Now()
	_, err := NewClient().Call(context.Background(), map[string]any{"url": srv.URL, "timeout": int64(50)})
	if api.AsAPIError(err).Type != api.ErrorTypeTransport {
		t.Fatalf("err = %v, want transport_error", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %v, timeout not applied", elapsed)
	}
}

func TestCallCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := NewClient().Call(ctx, map[string]any{"url": srv.URL})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestCallBodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text": "0123456789012345678901234567890123456789"}`)
	}))
	defer srv.Close()

	_, err := NewClient(WithMaxBodySize(16)).Call(context.Background(), map[string]any{"url": srv.URL})
	if api.AsAPIError(err).Type != api.ErrorTypeServerError {
		t.Errorf("err = %v, want server_error", err)
	}
}

func TestTimeoutConversion(t *testing.T) {
	c := NewClient(WithDefaultTimeout(3 * time.Second))
	tests := []struct {
		in   any
		want time.Duration
	}{
		{nil, 3 * time.Second},
		{int64(1500), 1500 * time.Millisecond},
		{float64(250), 250 * time.Millisecond},
		{"2000", 2 * time.Second},
		{"soon", 3 * time.Second},
		{int64(0), 3 * time.Second},
	}
	for _, tt := range tests {
		if got := c.timeout(tt.in); got != tt.want {
			t.Errorf("timeout(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
