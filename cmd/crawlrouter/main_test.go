package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rhuss/crawlrouter/pkg/config"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  type: none\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBackendsList(t *testing.T) {
	out, err := runCmd(t, "backends", "list", "--config", emptyConfig(t))
	if err != nil {
		t.Fatalf("backends list: %v", err)
	}
	for _, want := range []string{"KIND", "search", "searxng*", "scrape", "jina*"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRequest(t *testing.T) {
	t.Setenv("SEARXNG_ENDPOINT", "http://searx.local")

	ctxFile := filepath.Join(t.TempDir(), "ctx.json")
	if err := os.WriteFile(ctxFile, []byte(`{"query": "golang", "limit": 3}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "render", "search", "searxng", "--context", ctxFile, "--config", emptyConfig(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`"http://searx.local/search"`, `"q": "golang"`} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered request missing %s:\n%s", want, out)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	cfg := emptyConfig(t)
	tests := []struct {
		name string
		args []string
	}{
		{"unknown kind", []string{"render", "crawl", "searxng", "--config", cfg}},
		{"unknown backend", []string{"render", "search", "bing", "--config", cfg}},
		{"missing context file", []string{"render", "search", "searxng", "--context", "/nonexistent.json", "--config", cfg}},
		{"missing args", []string{"render", "search"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCmd(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSearchValidation(t *testing.T) {
	if _, err := runCmd(t, "search", "   ", "--config", emptyConfig(t)); err == nil {
		t.Error("blank query should be rejected")
	}
}

func TestScrapeValidation(t *testing.T) {
	if _, err := runCmd(t, "scrape", "ftp://example.com", "--config", emptyConfig(t)); err == nil {
		t.Error("non-http URL should be rejected")
	}
}

func TestNewAuthChain(t *testing.T) {
	for _, typ := range []string{"none", "apikey", "jwt"} {
		chain, err := newAuthChain(config.AuthConfig{Type: typ, JWT: config.JWTConfig{JWKSURL: "http://jwks.local"}})
		if err != nil {
			t.Fatalf("%s: %v", typ, err)
		}
		if len(chain.Authenticators) != 1 {
			t.Errorf("%s: %d authenticators, want 1", typ, len(chain.Authenticators))
		}
	}
	if _, err := newAuthChain(config.AuthConfig{Type: "ldap"}); err == nil {
		t.Error("unknown auth type should fail")
	}
}

func TestNewRateLimiter(t *testing.T) {
	if newRateLimiter(config.RateLimitConfig{}) != nil {
		t.Error("no limits should yield a nil limiter")
	}
	if newRateLimiter(config.RateLimitConfig{Tiers: map[string]int{"free": 10}}) == nil {
		t.Error("tier limits should yield a limiter")
	}
}
