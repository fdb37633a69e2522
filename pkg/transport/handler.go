package transport

import (
	"context"

	"github.com/rhuss/crawlrouter/pkg/api"
)

// Operation is one unit of work submitted to an Executor.
type Operation struct {
	Kind api.Kind

	// Backends lists the candidate backend names. Empty means the
	// configured default for Kind.
	Backends []string

	// Request is the normalized request mapping (see api.Context).
	Request map[string]any

	// JobID, when set, turns the operation into a status lookup of an
	// asynchronous job previously started with Kind.
	JobID string
}

// Executor runs operations against backends and returns the normalized
// result mapping.
type Executor interface {
	Execute(ctx context.Context, op *Operation) (map[string]any, error)
}

// ExecutorFunc is an adapter that allows using an ordinary function as an
// Executor.
type ExecutorFunc func(ctx context.Context, op *Operation) (map[string]any, error)

// Execute calls f(ctx, op).
func (f ExecutorFunc) Execute(ctx context.Context, op *Operation) (map[string]any, error) {
	return f(ctx, op)
}

// BackendLister reports the backend names available per operation kind.
type BackendLister interface {
	Names(kind api.Kind) []string
}

// ListOptions controls pagination, filtering, and ordering for list operations.
type ListOptions struct {
	After   string   // Cursor: return entries after this ID.
	Before  string   // Cursor: return entries before this ID.
	Limit   int      // Maximum number of entries to return (default 20, max 100).
	Kind    api.Kind // Filter by operation kind.
	Backend string   // Filter by backend name.
	Order   string   // Sort order: "asc" or "desc" (default "desc").
}

// RequestLog persists executed backend calls.
type RequestLog interface {
	// Record appends an entry. Entries are scoped to the tenant in ctx.
	Record(ctx context.Context, entry *api.LogEntry) error

	// Get returns one entry by ID, or storage.ErrNotFound.
	Get(ctx context.Context, id string) (*api.LogEntry, error)

	// List returns a page of entries visible to the tenant in ctx.
	List(ctx context.Context, opts ListOptions) (*api.LogList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
