package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/selector"
	"github.com/rhuss/crawlrouter/pkg/storage"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// Adapter serves the gateway API over HTTP. It decodes and validates the
// normalized requests, hands them to the Executor and writes the result.
type Adapter struct {
	exec     transport.Executor
	backends transport.BackendLister
	log      transport.RequestLog // nil if the request log is disabled
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize: 10 << 20, // 10 MB
	}
}

// NewAdapter creates an HTTP adapter. The RequestLog is optional; when nil,
// the /v1/requests endpoints report that the log is not available.
// Middleware is applied to the Executor in the given order.
func NewAdapter(exec transport.Executor, backends transport.BackendLister, log transport.RequestLog, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		exec = transport.Chain(middlewares...)(exec)
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultConfig().MaxBodySize
	}

	a := &Adapter{
		exec:     exec,
		backends: backends,
		log:      log,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /v1/search", operation(a, api.KindSearch, api.ValidateSearchRequest))
	a.mux.HandleFunc("POST /v1/scrape", operation(a, api.KindScrape, api.ValidateScrapeRequest))
	a.mux.HandleFunc("POST /v1/batch/scrape", operation(a, api.KindBatchScrape, api.ValidateBatchScrapeRequest))
	a.mux.HandleFunc("POST /v1/extract", operation(a, api.KindExtract, api.ValidateExtractRequest))
	a.mux.HandleFunc("GET /v1/extract/{id}", a.handleStatus(api.KindExtract))
	a.mux.HandleFunc("POST /v1/deep-research", operation(a, api.KindDeepResearch, api.ValidateDeepResearchRequest))
	a.mux.HandleFunc("GET /v1/deep-research/{id}", a.handleStatus(api.KindDeepResearch))
	a.mux.HandleFunc("POST /scrape", a.handlePlaywright)

	a.mux.HandleFunc("GET /v1/backends", a.handleListBackends)
	a.mux.HandleFunc("GET /v1/requests/{id}", a.handleGetRequest)
	a.mux.HandleFunc("GET /v1/requests", a.handleListRequests)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A valid ID
// sent by the client is kept, otherwise a new one is assigned. The ID is
// placed in the context, where the transport-level RequestID middleware
// picks it up, and echoed in the response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if !api.ValidateRequestID(id) {
			id = api.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.WithRequestID(r.Context(), id)))
	})
}

// operation returns the handler for a POST endpoint of the given kind. The
// body is decoded into T, validated (which also fills in defaults) and
// flattened into the normalized request mapping.
func operation[T any](a *Adapter, kind api.Kind, validate func(*T) *api.APIError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if !a.decode(w, r, &req) {
			return
		}
		if apiErr := validate(&req); apiErr != nil {
			transport.WriteError(w, apiErr)
			return
		}
		fields, err := api.Context(&req)
		if err != nil {
			transport.WriteError(w, err)
			return
		}

		a.execute(w, r, &transport.Operation{
			Kind:     kind,
			Backends: selector.SplitCSV(r.URL.Query().Get("backend")),
			Request:  fields,
		})
	}
}

// handleStatus handles GET /v1/{kind}/{id} for asynchronous jobs.
func (a *Adapter) handleStatus(kind api.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			transport.WriteError(w, api.NewInvalidRequestError("id", "job ID is required"))
			return
		}
		a.execute(w, r, &transport.Operation{
			Kind:     kind,
			Backends: selector.SplitCSV(r.URL.Query().Get("backend")),
			Request:  map[string]any{"id": id},
			JobID:    id,
		})
	}
}

// handlePlaywright handles the playwright-service compatible POST /scrape.
// The page is scraped as markdown by the default scrape backends and the
// reply is reduced to {content, pageStatusCode}.
func (a *Adapter) handlePlaywright(w http.ResponseWriter, r *http.Request) {
	var req api.PlaywrightRequest
	if !a.decode(w, r, &req) {
		return
	}
	if apiErr := api.ValidatePlaywrightRequest(&req); apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	scrape := api.ScrapeRequest{URL: req.URL}
	scrape.Formats = []string{api.FormatMarkdown}
	scrape.Headers = req.Headers
	scrape.Timeout = req.Timeout
	scrape.WaitFor = req.WaitAfterLoad
	if apiErr := api.ValidateScrapeRequest(&scrape); apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}
	fields, err := api.Context(&scrape)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	result, err := a.exec.Execute(r.Context(), &transport.Operation{Kind: api.KindScrape, Request: fields})
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	data, _ := result["data"].(map[string]any)
	content, _ := data["markdown"].(string)
	writeJSON(w, http.StatusOK, api.PlaywrightResponse{
		Content:        content,
		PageStatusCode: pageStatus(data),
	})
}

// pageStatus reads data.metadata.statusCode, defaulting to 200 for
// backends that do not report it.
func pageStatus(data map[string]any) int {
	meta, _ := data["metadata"].(map[string]any)
	switch v := meta["statusCode"].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return http.StatusOK
}

// handleListBackends handles GET /v1/backends.
func (a *Adapter) handleListBackends(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]string, len(api.Kinds))
	for _, kind := range api.Kinds {
		names := a.backends.Names(kind)
		if names == nil {
			names = []string{}
		}
		out[string(kind)] = names
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "backends",
		"data":   out,
	})
}

// handleGetRequest handles GET /v1/requests/{id}.
func (a *Adapter) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	if !a.requireLog(w) {
		return
	}

	id := r.PathValue("id")
	entry, err := a.log.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteError(w, api.NewNotFoundError("request "+id+" not found"))
		} else {
			transport.WriteError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleListRequests handles GET /v1/requests.
func (a *Adapter) handleListRequests(w http.ResponseWriter, r *http.Request) {
	if !a.requireLog(w) {
		return
	}

	opts, apiErr := parseListOptions(r)
	if apiErr != nil {
		transport.WriteError(w, apiErr)
		return
	}

	result, err := a.log.List(r.Context(), opts)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHealth handles GET /healthz. It reports the request log health
// when one is configured.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.log != nil {
		if err := a.log.HealthCheck(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Adapter) requireLog(w http.ResponseWriter) bool {
	if a.log != nil {
		return true
	}
	transport.WriteStatus(w, http.StatusNotImplemented,
		api.NewInvalidRequestError("", "request log is not available (no storage configured)"),
	)
	return false
}

// execute runs op and writes either the normalized result or the error.
func (a *Adapter) execute(w http.ResponseWriter, r *http.Request, op *transport.Operation) {
	result, err := a.exec.Execute(r.Context(), op)
	if err != nil {
		transport.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decode reads a JSON request body into v. On failure it writes the error
// response and returns false.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteStatus(w, http.StatusUnsupportedMediaType,
				api.NewInvalidRequestError("content_type", "Content-Type must be application/json"),
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteStatus(w, http.StatusRequestEntityTooLarge,
				api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
			)
			return false
		}
		transport.WriteError(w, api.NewInvalidRequestError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

// parseListOptions extracts pagination and filter parameters from the
// query string.
func parseListOptions(r *http.Request) (transport.ListOptions, *api.APIError) {
	q := r.URL.Query()
	opts := transport.ListOptions{
		After:   q.Get("after"),
		Before:  q.Get("before"),
		Backend: q.Get("backend"),
		Order:   q.Get("order"),
	}

	if opts.After != "" && opts.Before != "" {
		return opts, api.NewInvalidRequestError("after", "cannot use both 'after' and 'before' cursors")
	}

	if opts.Order != "" && opts.Order != "asc" && opts.Order != "desc" {
		return opts, api.NewInvalidRequestError("order", "order must be 'asc' or 'desc'")
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	if k := q.Get("kind"); k != "" {
		kind, err := api.ParseKind(k)
		if err != nil {
			return opts, api.NewInvalidRequestError("kind", err.Error())
		}
		opts.Kind = kind
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return opts, api.NewInvalidRequestError("limit", "limit must be a positive integer")
		}
		opts.Limit = limit
	}

	return opts, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
