package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/observability"
	"github.com/rhuss/crawlrouter/pkg/storage"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// PublicPaths are served without authentication by default.
var PublicPaths = []string{"/healthz", "/metrics"}

// Middleware authenticates every request except those for public paths.
// The identity is stored in the request context and its tenant scopes the
// request log. limiter may be nil.
func Middleware(chain *Chain, limiter Limiter, public []string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(public))
	for _, p := range public {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			res := chain.Authenticate(r.Context(), r)
			if res.Decision != Allow || res.Identity == nil {
				slog.Warn("request rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr, "error", res.Err)
				w.Header().Set("WWW-Authenticate", `Bearer realm="crawlrouter"`)
				transport.WriteError(w, api.NewUnauthorizedError("a valid API key or bearer token is required"))
				return
			}
			id := res.Identity
			if id.Subject == "" {
				slog.Error("authenticator allowed an identity without subject")
				transport.WriteError(w, api.NewServerError("internal authentication error"))
				return
			}

			if limiter != nil {
				if err := limiter.Allow(r.Context(), id); err != nil {
					observability.RateLimitRejectedTotal.WithLabelValues(id.Tier).Inc()
					slog.Warn("rate limited", "subject", id.Subject, "tier", id.Tier)
					transport.WriteError(w, api.NewTooManyRequestsError(err.Error()))
					return
				}
			}

			ctx := WithIdentity(r.Context(), id)
			if id.Tenant != "" {
				ctx = storage.WithTenant(ctx, id.Tenant)
			}
			slog.Debug("request authenticated", "subject", id.Subject, "path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
