package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/auth"
	"github.com/rhuss/crawlrouter/pkg/auth/apikey"
	"github.com/rhuss/crawlrouter/pkg/auth/jwt"
	"github.com/rhuss/crawlrouter/pkg/auth/noop"
	"github.com/rhuss/crawlrouter/pkg/backend"
	"github.com/rhuss/crawlrouter/pkg/config"
	"github.com/rhuss/crawlrouter/pkg/debug"
	"github.com/rhuss/crawlrouter/pkg/engine"
	"github.com/rhuss/crawlrouter/pkg/gateway"
	"github.com/rhuss/crawlrouter/pkg/provider"
	"github.com/rhuss/crawlrouter/pkg/storage/memory"
	"github.com/rhuss/crawlrouter/pkg/storage/postgres"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// loadConfig loads the configuration and initializes logging from it.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	debug.Init(cfg.Debug.Categories, cfg.Debug.Level, cfg.Debug.Format)
	return cfg, nil
}

// loadBackends reads the backend definitions from the configured directory
// or falls back to the embedded ones.
func loadBackends(cfg *config.Config) (*backend.Store, error) {
	if cfg.Backends.Dir == "" {
		return backend.Defaults()
	}
	store, err := backend.Load(cfg.Backends.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading backends from %s: %w", cfg.Backends.Dir, err)
	}
	slog.Info("backend definitions loaded", "dir", cfg.Backends.Dir)
	return store, nil
}

// newRequestLog creates the request log selected by storage.type. A nil
// log disables recording.
func newRequestLog(ctx context.Context, cfg *config.Config) (transport.RequestLog, error) {
	switch cfg.Storage.Type {
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres request log: %w", err)
		}
		slog.Info("request log enabled", "type", "postgres")
		return store, nil
	case "none":
		slog.Info("request log disabled")
		return nil, nil
	default:
		slog.Info("request log enabled", "type", "memory", "max_size", cfg.Storage.MaxSize)
		return memory.New(cfg.Storage.MaxSize), nil
	}
}

// newGateway builds the provider client, engine and gateway. log may be nil.
func newGateway(cfg *config.Config, store *backend.Store, log transport.RequestLog) (*gateway.Gateway, error) {
	opts := []provider.Option{
		provider.WithDefaultTimeout(cfg.Provider.DefaultTimeout),
		provider.WithMaxBodySize(cfg.Provider.MaxBodySize),
	}
	if cfg.Provider.UserAgent != "" {
		opts = append(opts, provider.WithUserAgent(cfg.Provider.UserAgent))
	}
	client := provider.NewClient(opts...)

	var engineOpts []engine.Option
	if log != nil {
		engineOpts = append(engineOpts, engine.WithRequestLog(log))
	}
	eng, err := engine.New(store, client, engine.Config{
		PollInterval: cfg.Provider.PollInterval,
		PollTimeout:  cfg.Provider.PollTimeout,
	}, engineOpts...)
	if err != nil {
		return nil, err
	}

	b := cfg.Backends
	return gateway.New(eng, gateway.Config{
		Defaults: map[api.Kind][]string{
			api.KindSearch:       b.Search,
			api.KindScrape:       b.Scrape,
			api.KindExtract:      b.Extract,
			api.KindDeepResearch: b.DeepResearch,
		},
		Rotation: map[api.Kind]string{
			api.KindSearch: b.SearchRotate,
			api.KindScrape: b.ScrapeRotate,
		},
	})
}

// newAuthChain builds the authenticator chain for auth.type.
func newAuthChain(cfg config.AuthConfig) (*auth.Chain, error) {
	switch cfg.Type {
	case "", "none":
		return &auth.Chain{Authenticators: []auth.Authenticator{noop.Authenticator{}}}, nil
	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			subject := k.Subject
			if subject == "" {
				subject = "apikey"
			}
			keys = append(keys, apikey.Key{Value: k.Key, Identity: auth.Identity{
				Subject:  subject,
				Tenant:   k.Tenant,
				Tier:     k.Tier,
				Backends: k.Backends,
			}})
		}
		return &auth.Chain{Authenticators: []auth.Authenticator{apikey.New(keys)}, Fallback: auth.Deny}, nil
	case "jwt":
		j := cfg.JWT
		return &auth.Chain{
			Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
				Issuer:        j.Issuer,
				Audience:      j.Audience,
				JWKSURL:       j.JWKSURL,
				UserClaim:     j.UserClaim,
				TenantClaim:   j.TenantClaim,
				TierClaim:     j.TierClaim,
				BackendsClaim: j.BackendsClaim,
				CacheTTL:      j.CacheTTL,
			})},
			Fallback: auth.Deny,
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// newRateLimiter returns nil when no limit is configured.
func newRateLimiter(cfg config.RateLimitConfig) auth.Limiter {
	if cfg.DefaultRPM <= 0 && len(cfg.Tiers) == 0 {
		return nil
	}
	return auth.NewTokenBucket(cfg.DefaultRPM, cfg.Tiers)
}
