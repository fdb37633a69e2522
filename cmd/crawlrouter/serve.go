package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rhuss/crawlrouter/pkg/auth"
	"github.com/rhuss/crawlrouter/pkg/config"
	"github.com/rhuss/crawlrouter/pkg/mcp"
	"github.com/rhuss/crawlrouter/pkg/observability"
	"github.com/rhuss/crawlrouter/pkg/transport"
	transporthttp "github.com/rhuss/crawlrouter/pkg/transport/http"
)

func newServeCmd(configPath *string) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	t := cfg.Observability.Tracing
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     t.Enabled,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		ServiceName: t.ServiceName,
		SampleRate:  t.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, err := loadBackends(cfg)
	if err != nil {
		return err
	}

	reqLog, err := newRequestLog(ctx, cfg)
	if err != nil {
		return err
	}
	if reqLog != nil {
		defer reqLog.Close()
	}

	gw, err := newGateway(cfg, store, reqLog)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	chain, err := newAuthChain(cfg.Auth)
	if err != nil {
		return err
	}

	opts := []transporthttp.ServerOption{
		transporthttp.WithAddr(":" + strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithMaxBodySize(cfg.Server.MaxBodySize),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	}

	public := []string{"/healthz"}
	metrics := cfg.Observability.Metrics
	if metrics.Enabled {
		opts = append(opts,
			transporthttp.WithRoute(metrics.Path, promhttp.Handler()),
			transporthttp.WithHTTPMiddleware(observability.MetricsMiddleware),
		)
		public = append(public, metrics.Path)
	}
	opts = append(opts, transporthttp.WithHTTPMiddleware(
		auth.Middleware(chain, newRateLimiter(cfg.Auth.RateLimit), public),
	))

	if cfg.MCP.Enabled {
		// MCP calls skip the adapter, so they get their own middleware.
		exec := transport.Chain(
			transport.Recovery(),
			transport.RequestID(),
			transport.Logging(slog.Default()),
		)(gw)
		opts = append(opts, transporthttp.WithRoute(cfg.MCP.Path, mcp.New(exec, gw, version).Handler()))
		slog.Info("mcp server enabled", "path", cfg.MCP.Path)
	}

	srv := transporthttp.NewServer(gw, gw, reqLog, opts...)
	slog.Info("crawlrouter starting",
		"port", cfg.Server.Port,
		"search", cfg.Backends.Search,
		"scrape", cfg.Backends.Scrape,
		"auth", cfg.Auth.Type,
		"storage", cfg.Storage.Type,
	)

	return srv.ListenAndServe()
}
