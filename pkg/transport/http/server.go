package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/rhuss/crawlrouter/pkg/transport"
)

// Server runs the API adapter plus extra routes on one listener and shuts
// down gracefully.
type Server struct {
	opts     serverOptions
	http     *http.Server
	inflight *transport.Inflight
}

type serverOptions struct {
	addr            string
	maxBodySize     int64
	shutdownTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	logger          *slog.Logger
	routes          map[string]http.Handler
	httpMiddleware  []func(http.Handler) http.Handler
	middleware      []transport.Middleware
}

type ServerOption func(*serverOptions)

func WithAddr(addr string) ServerOption {
	return func(o *serverOptions) { o.addr = addr }
}

func WithMaxBodySize(n int64) ServerOption {
	return func(o *serverOptions) { o.maxBodySize = n }
}

// WithShutdownTimeout bounds how long shutdown waits for running
// requests before it cancels them.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(o *serverOptions) { o.shutdownTimeout = d }
}

// WithTimeouts sets the read and write timeouts of the listener. Zero
// disables a timeout.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(o *serverOptions) { o.readTimeout, o.writeTimeout = read, write }
}

func WithLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithRoute mounts h on a ServeMux pattern next to the API, such as
// "GET /metrics".
func WithRoute(pattern string, h http.Handler) ServerOption {
	return func(o *serverOptions) {
		if o.routes == nil {
			o.routes = make(map[string]http.Handler)
		}
		o.routes[pattern] = h
	}
}

// WithHTTPMiddleware wraps every route. The first middleware given is the
// outermost.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(o *serverOptions) { o.httpMiddleware = append(o.httpMiddleware, mw...) }
}

// WithMiddleware adds executor middleware inside the built-in recovery,
// request ID, tracking and logging layers.
func WithMiddleware(mw ...transport.Middleware) ServerOption {
	return func(o *serverOptions) { o.middleware = append(o.middleware, mw...) }
}

// NewServer serves exec on the API routes. log may be nil, in which case
// /v1/requests answers 501.
func NewServer(exec transport.Executor, backends transport.BackendLister, log transport.RequestLog, opts ...ServerOption) *Server {
	o := serverOptions{
		addr:            ":8080",
		maxBodySize:     10 << 20,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{opts: o, inflight: transport.NewInflight()}
	mw := append([]transport.Middleware{
		transport.Recovery(),
		transport.RequestID(),
		s.inflight.Middleware(),
		transport.Logging(o.logger),
	}, o.middleware...)
	adapter := NewAdapter(exec, backends, log, Config{MaxBodySize: o.maxBodySize}, mw...)

	mux := http.NewServeMux()
	mux.Handle("/", adapter.Handler())
	for pattern, h := range o.routes {
		mux.Handle(pattern, h)
	}
	var h http.Handler = mux
	for _, wrap := range slices.Backward(o.httpMiddleware) {
		h = wrap(h)
	}

	s.http = &http.Server{
		Addr:              o.addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       o.readTimeout,
		WriteTimeout:      o.writeTimeout,
	}
	return s
}

// Handler returns the complete handler, middleware included.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe serves until SIGINT or SIGTERM.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ln, err := net.Listen("tcp", s.opts.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.opts.logger
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", ln.Addr().String())
		errc <- s.http.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", s.opts.shutdownTimeout, "inflight", s.inflight.Len())
	sctx, cancel := context.WithTimeout(context.Background(), s.opts.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		log.Error("shutdown incomplete", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// Shutdown stops accepting requests and waits for running ones until ctx
// is done. Operations still running then, typically job polls, are
// cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if kind, age, ok := s.inflight.Oldest(); ok {
		s.opts.logger.Warn("cancelling running operations",
			"count", s.inflight.Len(), "oldest_kind", kind, "oldest_age", age)
	}
	s.inflight.CancelAll()
	return err
}
