package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rhuss/crawlrouter/pkg/api"
)

// Inflight keeps the cancel functions of running operations, keyed by
// request ID, so shutdown can abandon long job polls.
type Inflight struct {
	mu  sync.Mutex
	ops map[string]running
}

type running struct {
	kind    api.Kind
	started time.Time
	cancel  context.CancelFunc
}

func NewInflight() *Inflight {
	return &Inflight{ops: make(map[string]running)}
}

// Middleware tracks each operation for the duration of the call. It must
// run inside RequestID; operations without a request ID are not tracked.
func (f *Inflight) Middleware() Middleware {
	return func(next Executor) Executor {
		return ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
			id := RequestIDFrom(ctx)
			if id == "" {
				return next.Execute(ctx, op)
			}
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			f.mu.Lock()
			f.ops[id] = running{kind: op.Kind, started: time.Now(), cancel: cancel}
			f.mu.Unlock()
			defer func() {
				f.mu.Lock()
				delete(f.ops, id)
				f.mu.Unlock()
			}()

			return next.Execute(ctx, op)
		})
	}
}

// Cancel aborts the operation with request ID id. It reports whether such
// an operation was running.
func (f *Inflight) Cancel(id string) bool {
	f.mu.Lock()
	op, ok := f.ops[id]
	delete(f.ops, id)
	f.mu.Unlock()
	if ok {
		op.cancel()
	}
	return ok
}

// CancelAll aborts every running operation and returns how many there
// were.
func (f *Inflight) CancelAll() int {
	f.mu.Lock()
	ops := f.ops
	f.ops = make(map[string]running)
	f.mu.Unlock()
	for _, op := range ops {
		op.cancel()
	}
	return len(ops)
}

// Oldest returns the kind and age of the longest running operation.
// ok is false when nothing is running.
func (f *Inflight) Oldest() (kind api.Kind, age time.Duration, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first time.Time
	for _, op := range f.ops {
		if !ok || op.started.Before(first) {
			kind, first, ok = op.kind, op.started, true
		}
	}
	if ok {
		age = time.Since(first)
	}
	return kind, age, ok
}

func (f *Inflight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}
