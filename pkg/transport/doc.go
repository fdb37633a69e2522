// Package transport defines the handler interfaces and middleware chain for
// the crawlrouter HTTP transport layer.
//
// The transport layer bridges external clients and the gateway. It decodes
// incoming requests into the normalized forms defined in pkg/api, dispatches
// them as Operations, and writes the normalized result back as JSON.
//
// # Handler Interfaces
//
//   - Executor runs one Operation (search, scrape, batch scrape, extract,
//     deep research, or a job status lookup) against the configured backends.
//   - RequestLog records executed backend calls and lists them back. It is
//     optional; without one, GET /v1/requests answers 501.
//
// # Middleware
//
// The middleware chain wraps Executor with cross-cutting concerns: panic
// recovery, request ID assignment (X-Request-ID), structured logging via
// log/slog and in-flight tracking for shutdown. Custom middleware can be
// added for application-specific concerns.
package transport
