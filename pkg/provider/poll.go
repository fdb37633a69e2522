package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/debug"
	"github.com/rhuss/crawlrouter/pkg/observability"
)

// Status values reported by asynchronous provider jobs.
const (
	StatusCompleted = "completed"
	KeyStatus       = "status"
)

// DefaultPollInterval replaces a negative poll interval.
const DefaultPollInterval = time.Second

// PollState tracks one polling run.
type PollState struct {
	ResultURL string
	Interval  time.Duration
	Timeout   time.Duration
	StartedAt time.Time
	Attempts  int
}

// Elapsed returns the time since polling started.
func (s *PollState) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

// Poller waits for asynchronous provider jobs to complete.
type Poller struct {
	client Getter
}

// NewPoller creates a Poller that checks status through client.
func NewPoller(client Getter) *Poller {
	return &Poller{client: client}
}

// Poll fetches resultURL with headers until the reply reports
// status "completed" and returns that reply. Before each check after the
// first it waits interval; a zero interval checks again at once. Once the elapsed time exceeds timeout, Poll
// fails with a timeout_error; a status check that fails ends polling with
// that error.
func (p *Poller) Poll(ctx context.Context, resultURL string, headers map[string]any, interval, timeout time.Duration) (map[string]any, error) {
	if interval < 0 {
		interval = DefaultPollInterval
	}
	state := &PollState{
		ResultURL: resultURL,
		Interval:  interval,
		Timeout:   timeout,
		StartedAt: time.Now(),
	}

	ctx, span := observability.StartSpan(ctx, "provider.poll")
	defer span.End()

	observability.ActivePolls.Inc()
	defer observability.ActivePolls.Dec()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			observability.PollAttemptsTotal.WithLabelValues("error").Inc()
			return nil, ctx.Err()
		case <-timer.C:
		}

		if state.Elapsed() > state.Timeout {
			observability.PollAttemptsTotal.WithLabelValues("timeout").Inc()
			span.SetAttributes(observability.AttrPollCount.Int(state.Attempts))
			span.SetStatus(codes.Error, "timeout")
			debug.Log("provider", "poll timeout", "url", resultURL, "attempts", state.Attempts, "elapsed", state.Elapsed())
			return nil, api.NewTimeoutError("Timeout exceeded")
		}

		state.Attempts++
		reply, err := p.client.Get(ctx, resultURL, headers)
		if err != nil {
			observability.PollAttemptsTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "status check failed")
			return nil, err
		}

		if status, _ := reply[KeyStatus].(string); status == StatusCompleted {
			observability.PollAttemptsTotal.WithLabelValues("completed").Inc()
			span.SetAttributes(observability.AttrPollCount.Int(state.Attempts))
			debug.Log("provider", "poll completed", "url", resultURL, "attempts", state.Attempts)
			return reply, nil
		}

		observability.PollAttemptsTotal.WithLabelValues("pending").Inc()
		debug.Trace("provider", "poll pending", "url", resultURL, "attempt", state.Attempts, "status", reply[KeyStatus])
		timer.Reset(state.Interval)
	}
}
