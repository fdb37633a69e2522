package observability

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type kindKey struct{}

// MetricsMiddleware counts and times HTTP requests by method, status code
// and the operation kind derived from the path.
func MetricsMiddleware(next http.Handler) http.Handler {
	kind := promhttp.WithLabelFromCtx("kind", func(ctx context.Context) string {
		k, _ := ctx.Value(kindKey{}).(string)
		return k
	})
	h := promhttp.InstrumentHandlerDuration(RequestDuration,
		promhttp.InstrumentHandlerCounter(RequestsTotal, next, kind), kind)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), kindKey{}, KindFromPath(r.URL.Path))
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

var pathKinds = map[string]string{
	"search":        "search",
	"scrape":        "scrape",
	"batch":         "batch_scrape",
	"extract":       "extract",
	"deep-research": "deep_research",
	"requests":      "requests",
	"backends":      "backends",
	"mcp":           "mcp",
}

// KindFromPath returns the metric label for path. Anything outside the
// API maps to "other" so label cardinality stays bounded.
func KindFromPath(path string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "v1/")
	seg, _, _ := strings.Cut(rest, "/")
	if k, ok := pathKinds[seg]; ok {
		return k
	}
	return "other"
}
