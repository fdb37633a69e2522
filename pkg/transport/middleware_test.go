package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/rhuss/crawlrouter/pkg/api"
)

var searchOp = &Operation{Kind: api.KindSearch, Backends: []string{"searxng", "jina"}}

func noop(ctx context.Context, op *Operation) (map[string]any, error) { return map[string]any{}, nil }

func TestChainOrder(t *testing.T) {
	var trace []string
	layer := func(name string) Middleware {
		return func(next Executor) Executor {
			return ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
				trace = append(trace, "in:"+name)
				defer func() { trace = append(trace, "out:"+name) }()
				return next.Execute(ctx, op)
			})
		}
	}
	exec := Chain(layer("a"), layer("b"))(ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
		trace = append(trace, "exec")
		return nil, nil
	}))
	_, _ = exec.Execute(context.Background(), searchOp)

	want := []string{"in:a", "in:b", "exec", "out:b", "out:a"}
	if !slices.Equal(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}

	if _, err := Chain()(ExecutorFunc(noop)).Execute(context.Background(), searchOp); err != nil {
		t.Errorf("empty chain: %v", err)
	}
}

func TestRecovery(t *testing.T) {
	exec := Recovery()(ExecutorFunc(func(context.Context, *Operation) (map[string]any, error) {
		panic("template blew up")
	}))
	out, err := exec.Execute(context.Background(), searchOp)
	if out != nil {
		t.Errorf("out = %v, want nil", out)
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != api.ErrorTypeServerError {
		t.Fatalf("err = %v, want server error", err)
	}
	if !strings.Contains(apiErr.Message, "template blew up") {
		t.Errorf("message = %q", apiErr.Message)
	}

	if _, err := Recovery()(ExecutorFunc(noop)).Execute(context.Background(), searchOp); err != nil {
		t.Errorf("no panic: %v", err)
	}
}

func TestRequestID(t *testing.T) {
	seen := map[string]bool{}
	exec := RequestID()(ExecutorFunc(func(ctx context.Context, op *Operation) (map[string]any, error) {
		seen[RequestIDFrom(ctx)] = true
		return nil, nil
	}))

	for range 50 {
		_, _ = exec.Execute(context.Background(), searchOp)
	}
	if len(seen) != 50 {
		t.Errorf("%d distinct IDs, want 50", len(seen))
	}
	for id := range seen {
		if !api.ValidateRequestID(id) {
			t.Errorf("generated ID %q is not valid", id)
		}
	}

	clear(seen)
	_, _ = exec.Execute(WithRequestID(context.Background(), "req_client"), searchOp)
	if !seen["req_client"] || len(seen) != 1 {
		t.Errorf("existing ID not kept: %v", seen)
	}
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name string
		exec ExecutorFunc
		op   *Operation
		want []string
	}{
		{
			name: "success",
			exec: func(context.Context, *Operation) (map[string]any, error) {
				return map[string]any{"backend": "searxng"}, nil
			},
			op:   searchOp,
			want: []string{"level=INFO", `msg="operation done"`, "request_id=req_1", "kind=search", "requested=searxng,jina", "backend=searxng"},
		},
		{
			name: "failure",
			exec: func(context.Context, *Operation) (map[string]any, error) {
				return nil, api.NewUpstreamError(502, "bad gateway")
			},
			op:   searchOp,
			want: []string{"level=ERROR", `msg="operation failed"`, "bad gateway"},
		},
		{
			name: "job status",
			exec: noop,
			op:   &Operation{Kind: api.KindExtract, JobID: "job-7"},
			want: []string{"kind=extract", "job_id=job-7"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			_, _ = Logging(logger)(tt.exec).Execute(WithRequestID(context.Background(), "req_1"), tt.op)
			line := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("log line missing %q:\n%s", w, line)
				}
			}
		})
	}
}
