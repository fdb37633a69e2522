// Package mock implements a deterministic search and scrape provider for
// demos and integration tests. It speaks enough of the SearXNG and
// Firecrawl APIs for the embedded backend definitions to run against it:
//
//	GET  /search                     SearXNG JSON search
//	POST /v1/search                  Firecrawl search
//	POST /v1/scrape                  Firecrawl scrape
//	POST /v1/batch/scrape            Firecrawl batch job, polled at the returned url
//	GET  /v1/batch/scrape/{id}
//	POST /v1/extract                 Firecrawl extract job
//	GET  /v1/extract/{id}
//	POST /v1/deep-research           Firecrawl deep research job
//	GET  /v1/deep-research/{id}
//
// Queries and URLs containing "fail" make the provider answer 503.
package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultResults is the number of search results per query.
const DefaultResults = 3

// Provider is the mock provider. Create with New and serve Handler.
type Provider struct {
	mux     *http.ServeMux
	results int
	pending int
	logger  *slog.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

type job struct {
	kind   string
	checks int
	data   any
}

// Option configures a Provider.
type Option func(*Provider)

// WithResults sets the number of search results per query.
func WithResults(n int) Option {
	return func(p *Provider) { p.results = n }
}

// WithPendingChecks sets how many status checks of a job report it as
// still running before it completes. Default 1.
func WithPendingChecks(n int) Option {
	return func(p *Provider) { p.pending = n }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New creates a mock provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		mux:     http.NewServeMux(),
		results: DefaultResults,
		pending: 1,
		logger:  slog.Default(),
		jobs:    make(map[string]*job),
	}
	for _, o := range opts {
		o(p)
	}

	p.mux.HandleFunc("GET /search", p.handleSearXNG)
	p.mux.HandleFunc("POST /v1/search", p.handleSearch)
	p.mux.HandleFunc("POST /v1/scrape", p.handleScrape)
	p.mux.HandleFunc("POST /v1/batch/scrape", p.handleBatchScrape)
	p.mux.HandleFunc("GET /v1/batch/scrape/{id}", p.handleJob("batch"))
	p.mux.HandleFunc("POST /v1/extract", p.handleExtract)
	p.mux.HandleFunc("GET /v1/extract/{id}", p.handleJob("extract"))
	p.mux.HandleFunc("POST /v1/deep-research", p.handleDeepResearch)
	p.mux.HandleFunc("GET /v1/deep-research/{id}", p.handleJob("deep-research"))
	p.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return p
}

// Handler returns the provider's HTTP handler.
func (p *Provider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.logger.Debug("mock request", "method", r.Method, "path", r.URL.Path)
		p.mux.ServeHTTP(w, r)
	})
}

// --- Search ---

func (p *Provider) handleSearXNG(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if failing(w, q) {
		return
	}
	results := make([]map[string]any, 0, p.results)
	for _, item := range p.searchItems(q) {
		results = append(results, map[string]any{
			"url":     item.url,
			"title":   item.title,
			"content": item.description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "results": results})
}

func (p *Provider) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query         string `json:"query"`
		Limit         int    `json:"limit"`
		ScrapeOptions *struct {
			Formats []string `json:"formats"`
		} `json:"scrapeOptions"`
	}
	if !decode(w, r, &req) || failing(w, req.Query) {
		return
	}
	scrape := req.ScrapeOptions != nil && len(req.ScrapeOptions.Formats) > 0

	data := make([]map[string]any, 0, p.results)
	for _, item := range p.searchItems(req.Query) {
		entry := map[string]any{
			"url":         item.url,
			"title":       item.title,
			"description": item.description,
		}
		if scrape {
			entry["markdown"] = Markdown(item.url)
		}
		data = append(data, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

type searchItem struct {
	url, title, description string
}

func (p *Provider) searchItems(q string) []searchItem {
	slug := url.PathEscape(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(q)), " ", "-"))
	items := make([]searchItem, p.results)
	for i := range items {
		items[i] = searchItem{
			url:         fmt.Sprintf("https://example.com/%s/%d", slug, i+1),
			title:       fmt.Sprintf("%s result %d", q, i+1),
			description: fmt.Sprintf("Result %d for %s", i+1, q),
		}
	}
	return items
}

// --- Scrape ---

func (p *Provider) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !decode(w, r, &req) || failing(w, req.URL) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": page(req.URL)})
}

func (p *Provider) handleBatchScrape(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs []string `json:"urls"`
	}
	if !decode(w, r, &req) {
		return
	}
	pages := make([]any, 0, len(req.URLs))
	for _, u := range req.URLs {
		if strings.Contains(u, "fail") {
			continue
		}
		pages = append(pages, page(u))
	}
	id := p.newJob("batch", pages)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"id":      id,
		"url":     baseURL(r) + "/v1/batch/scrape/" + id,
	})
}

// Markdown is the content the provider returns for a scraped URL.
func Markdown(u string) string {
	return "# " + u + "\n\nMock content of " + u + "."
}

func page(u string) map[string]any {
	return map[string]any{
		"markdown": Markdown(u),
		"metadata": map[string]any{
			"title":      "Page " + u,
			"sourceURL":  u,
			"statusCode": 200,
		},
	}
}

// --- Jobs ---

func (p *Provider) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URLs   []string `json:"urls"`
		Prompt string   `json:"prompt"`
	}
	if !decode(w, r, &req) || failing(w, req.Prompt) {
		return
	}
	id := p.newJob("extract", map[string]any{"prompt": req.Prompt, "urls": req.URLs})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (p *Provider) handleDeepResearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if !decode(w, r, &req) || failing(w, req.Query) {
		return
	}
	id := p.newJob("deep-research", map[string]any{
		"finalAnalysis": "Mock analysis of " + req.Query,
		"sources":       []any{},
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func (p *Provider) newJob(kind string, data any) string {
	id := uuid.NewString()
	p.mu.Lock()
	p.jobs[id] = &job{kind: kind, data: data}
	p.mu.Unlock()
	return id
}

// handleJob reports a job as "scraping"/"processing" for the configured
// number of checks, then as completed with its data.
func (p *Provider) handleJob(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		p.mu.Lock()
		j, ok := p.jobs[id]
		var checks int
		if ok && j.kind == kind {
			j.checks++
			checks = j.checks
		}
		p.mu.Unlock()

		if !ok || j.kind != kind {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "job not found"})
			return
		}
		if checks <= p.pending {
			status := "processing"
			if kind == "batch" {
				status = "scraping"
			}
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": status})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   true,
			"status":    "completed",
			"data":      j.data,
			"expiresAt": time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339),
		})
	}
}

// --- Helpers ---

func failing(w http.ResponseWriter, s string) bool {
	if !strings.Contains(s, "fail") {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "provider unavailable"})
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON: " + err.Error()})
		return false
	}
	return true
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
