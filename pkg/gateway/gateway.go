// Package gateway routes operations to backends. It resolves the candidate
// list of an operation (request override or configured default), drops
// candidates the caller may not use, selects one with the rotation of the
// operation's group, and runs it through the engine.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/auth"
	"github.com/rhuss/crawlrouter/pkg/engine"
	"github.com/rhuss/crawlrouter/pkg/observability"
	"github.com/rhuss/crawlrouter/pkg/selector"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// Config holds the routing configuration.
type Config struct {
	// Defaults lists the default candidates per rotation group. Batch
	// scrape uses the scrape list.
	Defaults map[api.Kind][]string

	// Rotation is the selection mode per rotation group: "sequential"
	// (default) or "random".
	Rotation map[api.Kind]string
}

// Gateway selects backends and executes operations on them.
type Gateway struct {
	engine    *engine.Engine
	defaults  map[api.Kind][]string
	selectors map[api.Kind]selector.Selector
}

// Compile-time interface checks.
var (
	_ transport.Executor  = (*Gateway)(nil)
	_ engine.BatchScraper = (*Gateway)(nil)
)

// New creates a Gateway and registers it as the engine's batch scraper.
func New(e *engine.Engine, cfg Config) (*Gateway, error) {
	if e == nil {
		return nil, fmt.Errorf("gateway: engine must not be nil")
	}
	g := &Gateway{
		engine:    e,
		defaults:  make(map[api.Kind][]string),
		selectors: make(map[api.Kind]selector.Selector),
	}
	for _, kind := range api.Kinds {
		group := kind.RotationGroup()
		if _, ok := g.selectors[group]; ok {
			continue
		}
		sel, err := selector.New(cfg.Rotation[group])
		if err != nil {
			return nil, fmt.Errorf("gateway: %s rotation: %w", group, err)
		}
		g.selectors[group] = sel
		g.defaults[group] = cfg.Defaults[group]
	}
	e.SetBatchScraper(g)
	return g, nil
}

// Names returns the backend names defined for kind.
func (g *Gateway) Names(kind api.Kind) []string {
	return g.engine.Store().Names(kind)
}

// Execute selects a backend for op and runs it. Status lookups do not
// rotate: they go to the first candidate, which must be the backend that
// started the job.
func (g *Gateway) Execute(ctx context.Context, op *transport.Operation) (map[string]any, error) {
	candidates, err := g.candidates(ctx, op.Kind, op.Backends)
	if err != nil {
		return nil, err
	}

	if op.JobID != "" {
		return g.engine.Status(ctx, op.Kind, candidates[0], op.JobID)
	}

	name, err := g.selectors[op.Kind.RotationGroup()].Select(candidates)
	if err != nil {
		return nil, api.NewInvalidRequestError("backend", err.Error())
	}
	observability.BackendSelectionsTotal.WithLabelValues(string(op.Kind), name).Inc()
	slog.Debug("backend selected", "kind", op.Kind, "backend", name, "candidates", strings.Join(candidates, ","))

	return g.engine.Execute(ctx, op.Kind, name, op.Request)
}

// BatchScrape scrapes urls with the default batch scrape rotation. It is
// used to enrich search results.
func (g *Gateway) BatchScrape(ctx context.Context, req map[string]any) (map[string]any, error) {
	br := &api.BatchScrapeRequest{}
	if urls, ok := req["urls"].([]any); ok {
		for _, u := range urls {
			// Search results occasionally carry relative or non-web links.
			if s, ok := u.(string); ok && isWebURL(s) {
				br.URLs = append(br.URLs, s)
			}
		}
	}
	if formats, ok := req["formats"].([]any); ok {
		for _, f := range formats {
			if s, ok := f.(string); ok {
				br.Formats = append(br.Formats, s)
			}
		}
	}
	if len(br.URLs) == 0 {
		return map[string]any{"data": []any{}}, nil
	}
	if apiErr := api.ValidateBatchScrapeRequest(br); apiErr != nil {
		return nil, apiErr
	}
	normalized, err := api.Context(br)
	if err != nil {
		return nil, api.NewAdapterError(err.Error())
	}
	return g.Execute(ctx, &transport.Operation{Kind: api.KindBatchScrape, Request: normalized})
}

// candidates resolves the backend list for an operation.
func (g *Gateway) candidates(ctx context.Context, kind api.Kind, requested []string) ([]string, error) {
	list := requested
	if len(list) == 0 {
		list = g.defaults[kind.RotationGroup()]
	}
	if len(list) == 0 {
		return nil, api.NewInvalidRequestError("backend",
			fmt.Sprintf("no %s backend configured; choose from %s", kind, strings.Join(g.Names(kind), ", ")))
	}

	id := auth.FromContext(ctx)
	store := g.engine.Store()
	out := make([]string, 0, len(list))
	for _, name := range list {
		// Scrape backends that cannot batch are skipped rather than
		// rejected, so a shared scrape list serves both kinds.
		if kind == api.KindBatchScrape && !store.Has(kind, name) && store.Has(api.KindScrape, name) {
			continue
		}
		if !id.Allows(name) {
			continue
		}
		out = append(out, name)
	}
	if len(out) == 0 {
		if kind == api.KindBatchScrape {
			return nil, api.NewInvalidRequestError("backend",
				fmt.Sprintf("no batch-capable backend among %s; choose from %s", strings.Join(list, ", "), strings.Join(g.Names(kind), ", ")))
		}
		return nil, api.NewUnauthorizedError(fmt.Sprintf("not allowed to use backend %s", strings.Join(list, ", ")))
	}
	return out, nil
}

func isWebURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
