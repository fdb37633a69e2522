package transport

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/rhuss/crawlrouter/pkg/api"
)

// Middleware decorates an Executor.
type Middleware func(Executor) Executor

// Chain composes mw so that mw[0] is the outermost layer.
func Chain(mw ...Middleware) Middleware {
	return func(exec Executor) Executor {
		for _, m := range slices.Backward(mw) {
			exec = m(exec)
		}
		return exec
	}
}

type requestIDKey struct{}

// WithRequestID returns ctx carrying the request ID id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request ID of ctx, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID assigns a fresh request ID unless ctx already has one, as it
// does when the HTTP adapter took it from X-Request-ID.
func RequestID() Middleware {
	return func(next Executor) Executor {
		return ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
			if RequestIDFrom(ctx) == "" {
				ctx = WithRequestID(ctx, api.NewRequestID())
			}
			return next.Execute(ctx, op)
		})
	}
}

// Recovery turns a panic below it into a server error.
func Recovery() Middleware {
	return func(next Executor) Executor {
		return ExecutorFunc(func(ctx context.Context, op *Operation) (out map[string]any, err error) {
			defer func() {
				if p := recover(); p != nil {
					slog.ErrorContext(ctx, "executor panic",
						"request_id", RequestIDFrom(ctx), "kind", op.Kind, "panic", p, "stack", string(debug.Stack()))
					out, err = nil, api.NewServerError(fmt.Sprintf("internal error: %v", p))
				}
			}()
			return next.Execute(ctx, op)
		})
	}
}

// Logging writes one record per operation. Failures are logged at error
// level with the error text.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Executor) Executor {
		return ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
			start := time.Now()
			out, err := next.Execute(ctx, op)

			attrs := make([]slog.Attr, 0, 7)
			attrs = append(attrs,
				slog.String("request_id", RequestIDFrom(ctx)),
				slog.String("kind", string(op.Kind)),
				slog.Duration("elapsed", time.Since(start)),
			)
			if len(op.Backends) > 0 {
				attrs = append(attrs, slog.String("requested", strings.Join(op.Backends, ",")))
			}
			if b, _ := out["backend"].(string); b != "" {
				attrs = append(attrs, slog.String("backend", b))
			}
			if op.JobID != "" {
				attrs = append(attrs, slog.String("job_id", op.JobID))
			}

			level, msg := slog.LevelInfo, "operation done"
			if err != nil {
				level, msg = slog.LevelError, "operation failed"
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.LogAttrs(ctx, level, msg, attrs...)
			return out, err
		})
	}
}
