// Command mock-backend runs a deterministic search and scrape provider for
// demos and integration testing. Point the embedded backend definitions
// at it with SEARXNG_ENDPOINT and FIRECRAWL_ENDPOINT.
//
// Configuration:
//
//	MOCK_PORT            - Listen port (default: 9090)
//	MOCK_RESULTS         - Search results per query (default: 3)
//	MOCK_PENDING_CHECKS  - Status checks a job stays pending (default: 1)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rhuss/crawlrouter/pkg/provider/mock"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mock backend failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	port := envOrDefault("MOCK_PORT", "9090")

	opts := []mock.Option{mock.WithLogger(slog.Default())}
	if v := os.Getenv("MOCK_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MOCK_RESULTS %q", v)
		}
		opts = append(opts, mock.WithResults(n))
	}
	if v := os.Getenv("MOCK_PENDING_CHECKS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid MOCK_PENDING_CHECKS %q", v)
		}
		opts = append(opts, mock.WithPendingChecks(n))
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mock.New(opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
