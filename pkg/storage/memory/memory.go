// Package memory keeps the request log in process memory. Entries are lost
// on restart; when a size bound is set the oldest entries are dropped
// first.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/storage"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

type Store struct {
	mu    sync.RWMutex
	byID  map[string]*api.LogEntry
	order []string // insertion order, oldest first
	limit int
}

var _ transport.RequestLog = (*Store)(nil)

// New returns a store holding at most limit entries. limit <= 0 means
// unbounded.
func New(limit int) *Store {
	return &Store{byID: make(map[string]*api.LogEntry), limit: limit}
}

func (s *Store) Record(ctx context.Context, e *api.LogEntry) error {
	if t := storage.TenantFrom(ctx); t != "" {
		e.Tenant = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[e.ID]; dup {
		return storage.ErrConflict
	}
	s.byID[e.ID] = e
	s.order = append(s.order, e.ID)

	if s.limit > 0 && len(s.order) > s.limit {
		drop := len(s.order) - s.limit
		for _, id := range s.order[:drop] {
			delete(s.byID, id)
		}
		// copy so the backing array does not grow without bound
		s.order = append([]string(nil), s.order[drop:]...)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*api.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok || !storage.Visible(ctx, e.Tenant) {
		return nil, storage.ErrNotFound
	}
	return e, nil
}

func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// List pages through the visible entries ordered by time, then ID. A
// cursor that names no visible entry yields an empty page.
func (s *Store) List(ctx context.Context, opts transport.ListOptions) (*api.LogList, error) {
	s.mu.RLock()
	rows := make([]*api.LogEntry, 0, len(s.byID))
	for _, e := range s.byID {
		switch {
		case !storage.Visible(ctx, e.Tenant):
		case opts.Kind != "" && e.Kind != opts.Kind:
		case opts.Backend != "" && e.Backend != opts.Backend:
		default:
			rows = append(rows, e)
		}
	}
	s.mu.RUnlock()

	desc := opts.Order != "asc"
	slices.SortFunc(rows, func(a, b *api.LogEntry) int {
		c := a.Time.Compare(b.Time)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			return -c
		}
		return c
	})

	switch {
	case opts.After != "":
		i := slices.IndexFunc(rows, func(e *api.LogEntry) bool { return e.ID == opts.After })
		if i < 0 {
			rows = nil
		} else {
			rows = rows[i+1:]
		}
	case opts.Before != "":
		i := slices.IndexFunc(rows, func(e *api.LogEntry) bool { return e.ID == opts.Before })
		if i < 0 {
			rows = nil
		} else {
			rows = rows[:i]
		}
	}

	limit := storage.ClampLimit(opts.Limit)
	out := &api.LogList{Object: "list", Data: []*api.LogEntry{}}
	if len(rows) > limit {
		rows, out.HasMore = rows[:limit], true
	}
	if len(rows) > 0 {
		out.Data = rows
		out.FirstID, out.LastID = rows[0].ID, rows[len(rows)-1].ID
	}
	return out, nil
}
