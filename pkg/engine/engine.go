package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/backend"
	"github.com/rhuss/crawlrouter/pkg/debug"
	"github.com/rhuss/crawlrouter/pkg/observability"
	"github.com/rhuss/crawlrouter/pkg/provider"
	"github.com/rhuss/crawlrouter/pkg/render"
	"github.com/rhuss/crawlrouter/pkg/storage"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// Keys of the poll block and of the normalized context.
const (
	pollURL          = "url"
	pollInterval     = "interval"
	pollTimeout      = "timeout"
	keyProcessing    = "processingTime"
	keyJobID         = "id"
	keyData          = "data"
	keyLimit         = "limit"
	keyScrapeOptions = "scrapeOptions"
	keyFormats       = "formats"
	keyScrapeFlag    = "scrape"
)

// Caller performs one rendered provider call.
type Caller interface {
	Call(ctx context.Context, cfg map[string]any) (map[string]any, error)
}

// Poller waits for an asynchronous provider job to complete.
type Poller interface {
	Poll(ctx context.Context, resultURL string, headers map[string]any, interval, timeout time.Duration) (map[string]any, error)
}

// BatchScraper scrapes a list of URLs with a batch-capable scrape backend.
// The result holds data: [{markdown, metadata: {url}}].
type BatchScraper interface {
	BatchScrape(ctx context.Context, req map[string]any) (map[string]any, error)
}

// Engine executes operations against backend definitions.
type Engine struct {
	store   *backend.Store
	caller  Caller
	poller  Poller
	scraper BatchScraper
	log     transport.RequestLog
	cfg     Config
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithPoller sets the poller used for asynchronous definitions. Without
// one, a provider.Poller is built on the caller when it can also Get.
func WithPoller(p Poller) Option {
	return func(e *Engine) { e.poller = p }
}

// WithBatchScraper sets the collaborator that scrapes search results.
func WithBatchScraper(s BatchScraper) Option {
	return func(e *Engine) { e.scraper = s }
}

// WithRequestLog records every executed backend call.
func WithRequestLog(l transport.RequestLog) Option {
	return func(e *Engine) { e.log = l }
}

// New creates a new Engine. The store and caller must not be nil.
func New(store *backend.Store, caller Caller, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: backend store must not be nil")
	}
	if caller == nil {
		return nil, fmt.Errorf("engine: caller must not be nil")
	}
	e := &Engine{store: store, caller: caller, cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	if e.poller == nil {
		if g, ok := caller.(provider.Getter); ok {
			e.poller = provider.NewPoller(g)
		}
	}
	if e.cfg.Env == nil {
		e.cfg.Env = render.Environ()
	}
	return e, nil
}

// SetBatchScraper sets the batch scraper after construction, for
// collaborators that themselves need the Engine.
func (e *Engine) SetBatchScraper(s BatchScraper) {
	e.scraper = s
}

// Store returns the backend definitions the engine executes.
func (e *Engine) Store() *backend.Store {
	return e.store
}

// Execute runs one operation of kind against the named backend.
//
// The request template is rendered against the environment overlaid with
// req and pruned; the provider is called with the result. When the
// definition polls, the job is awaited at the URL found in the provider
// reply. The response template is then rendered against the environment
// overlaid with the reply and processingTime.
//
// Search results are truncated to req.limit. When req.scrapeOptions.formats
// is non-empty and the backend declares config.scrape falsy, the result
// URLs are scraped through the BatchScraper and the markdown is spliced
// into the items; items without scraped content are dropped.
func (e *Engine) Execute(ctx context.Context, kind api.Kind, name string, req map[string]any) (map[string]any, error) {
	def, ok := e.store.Lookup(kind, name)
	if !ok {
		return nil, api.NewUnknownBackendError(kind, name, e.store.Names(kind))
	}

	result, err := e.run(ctx, def, req)
	if err != nil {
		return nil, err
	}

	if kind == api.KindSearch {
		result, err = e.enrichSearch(ctx, def, req, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Status looks up an asynchronous job of kind started on the named
// backend, using the definition's status section.
func (e *Engine) Status(ctx context.Context, kind api.Kind, name, id string) (map[string]any, error) {
	def, ok := e.store.Lookup(kind, name)
	if !ok {
		return nil, api.NewUnknownBackendError(kind, name, e.store.Names(kind))
	}
	if def.Status == nil {
		return nil, api.NewInvalidRequestError("id", fmt.Sprintf("backend %q does not support %s status lookups", name, kind))
	}
	return e.run(ctx, def.Status, map[string]any{keyJobID: id})
}

// RenderRequest renders the outbound request config of the named backend
// without calling the provider.
func (e *Engine) RenderRequest(kind api.Kind, name string, req map[string]any) (map[string]any, error) {
	def, ok := e.store.Lookup(kind, name)
	if !ok {
		return nil, api.NewUnknownBackendError(kind, name, e.store.Names(kind))
	}
	return e.requestConfig(def, req), nil
}

func (e *Engine) requestConfig(def *backend.Definition, req map[string]any) map[string]any {
	cfg, _ := render.Prune(render.Render(def.Request, render.Overlay(e.cfg.Env, req))).(map[string]any)
	if cfg == nil {
		cfg = map[string]any{}
	}
	return cfg
}

// run performs one definition: render, call, poll, render.
func (e *Engine) run(ctx context.Context, def *backend.Definition, req map[string]any) (map[string]any, error) {
	ctx, span := observability.StartSpan(ctx, "engine.execute",
		observability.AttrKind.String(string(def.Kind)),
		observability.AttrBackend.String(def.Name),
	)
	defer span.End()

	start := time.Now()
	entry := &api.LogEntry{
		ID:      api.NewLogID(),
		Time:    start,
		Kind:    def.Kind,
		Target:  api.Target(req),
		Backend: def.Name,
		Tenant:  storage.TenantFrom(ctx),
	}

	result, err := e.call(ctx, def, req, entry, start)

	elapsed := time.Since(start)
	entry.Duration = seconds(elapsed)
	status := "success"
	if err != nil {
		status = "error"
		apiErr := api.AsAPIError(err)
		entry.Status = apiErr.HTTPStatus()
		entry.Error = apiErr.Message
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apiErr.Type))
	} else {
		entry.Status = 200
	}
	observability.BackendRequestsTotal.WithLabelValues(string(def.Kind), def.Name, status).Inc()
	observability.BackendLatency.WithLabelValues(string(def.Kind), def.Name).Observe(elapsed.Seconds())
	e.record(ctx, entry)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) call(ctx context.Context, def *backend.Definition, req map[string]any, entry *api.LogEntry, start time.Time) (map[string]any, error) {
	cfg := e.requestConfig(def, req)
	entry.Endpoint, _ = cfg[provider.KeyURL].(string)
	debug.Dump("engine", "request config", cfg)

	raw, err := e.caller.Call(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if def.Poll != nil {
		raw, err = e.poll(ctx, def, req, cfg, raw)
		if err != nil {
			return nil, err
		}
	}
	debug.Dump("engine", "provider reply", raw)

	ctx2 := render.Overlay(e.cfg.Env, raw, map[string]any{keyProcessing: seconds(time.Since(start))})
	result, ok := render.Render(def.Response, ctx2).(map[string]any)
	if !ok {
		return nil, api.NewConfigError(fmt.Sprintf("response template of %s backend %q must render a mapping", def.Kind, def.Name))
	}
	return result, nil
}

func (e *Engine) poll(ctx context.Context, def *backend.Definition, req, cfg, raw map[string]any) (map[string]any, error) {
	if e.poller == nil {
		return nil, api.NewConfigError(fmt.Sprintf("%s backend %q polls but no poller is configured", def.Kind, def.Name))
	}
	settings, _ := render.Render(def.Poll, render.Overlay(e.cfg.Env, req)).(map[string]any)

	path, _ := settings[pollURL].(string)
	resultURL, _ := render.Resolve(raw, path).(string)
	if path == "" || resultURL == "" {
		return nil, api.NewConfigError(fmt.Sprintf("%s backend %q: no result url at %q in provider reply", def.Kind, def.Name, path))
	}

	interval := durationSeconds(settings[pollInterval], e.cfg.pollInterval())
	timeout := durationSeconds(settings[pollTimeout], e.cfg.pollTimeout())
	headers, _ := cfg[provider.KeyHeaders].(map[string]any)

	debug.Log("engine", "polling", "backend", def.Name, "url", resultURL, "interval", interval, "timeout", timeout)
	return e.poller.Poll(ctx, resultURL, headers, interval, timeout)
}

func (e *Engine) record(ctx context.Context, entry *api.LogEntry) {
	if e.log == nil {
		return
	}
	// Record even when the inbound request was canceled.
	if err := e.log.Record(context.WithoutCancel(ctx), entry); err != nil {
		slog.Warn("failed to record request", "backend", entry.Backend, "error", err)
	}
}

// enrichSearch applies the search-only post-processing.
func (e *Engine) enrichSearch(ctx context.Context, def *backend.Definition, req, result map[string]any) (map[string]any, error) {
	items, _ := result[keyData].([]any)
	if limit, ok := intValue(req[keyLimit]); ok && limit >= 0 && len(items) > limit {
		items = items[:limit]
		result[keyData] = items
	}

	formats := scrapeFormats(req)
	if len(formats) == 0 {
		return result, nil
	}
	flag, ok := def.Flag(keyScrapeFlag)
	if !ok || render.Truthy(flag) {
		return result, nil
	}
	if e.scraper == nil {
		return nil, api.NewConfigError(fmt.Sprintf("search backend %q needs a batch scraper for scrapeOptions", def.Name))
	}

	urls := make([]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if u, ok := m["url"].(string); ok && u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		result[keyData] = []any{}
		return result, nil
	}

	scraped, err := e.scraper.BatchScrape(ctx, map[string]any{"urls": urls, keyFormats: formats})
	if err != nil {
		return nil, err
	}
	pages, _ := scraped[keyData].([]any)
	result[keyData] = combine(items, pages)
	return result, nil
}

// combine splices scraped markdown into search items by URL. Items that
// were not scraped are dropped.
func combine(items, pages []any) []any {
	byURL := make(map[string]any, len(pages))
	for _, p := range pages {
		page, ok := p.(map[string]any)
		if !ok {
			continue
		}
		meta, _ := page["metadata"].(map[string]any)
		if u, ok := meta["url"].(string); ok {
			byURL[u] = page["markdown"]
		}
	}

	out := make([]any, 0, len(items))
	for _, it := range items {
		item, ok := it.(map[string]any)
		if !ok {
			continue
		}
		u, _ := item["url"].(string)
		md, ok := byURL[u]
		if !ok {
			continue
		}
		merged := make(map[string]any, len(item)+1)
		for k, v := range item {
			merged[k] = v
		}
		merged["markdown"] = md
		out = append(out, merged)
	}
	return out
}

func scrapeFormats(req map[string]any) []any {
	opts, _ := req[keyScrapeOptions].(map[string]any)
	formats, _ := opts[keyFormats].([]any)
	return formats
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// durationSeconds reads a poll interval or timeout given in seconds. Zero
// is kept; def applies to absent, unparseable and negative values.
func durationSeconds(v any, def time.Duration) time.Duration {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if f < 0 || math.IsNaN(f) {
		return def
	}
	return time.Duration(f * float64(time.Second))
}

// seconds rounds d to milliseconds, expressed in seconds.
func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
