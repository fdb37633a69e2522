// Package api defines the normalized request types and the error taxonomy
// of the crawlrouter gateway.
//
// Clients speak a single Firecrawl-compatible vocabulary regardless of the
// provider that ultimately serves a request. The request types in this
// package carry that vocabulary, and their Context method flattens a
// validated request into the template context a backend definition is
// rendered against.
//
// Core types:
//   - [Kind]: operation family (search, scrape, batch_scrape, extract, deep_research)
//   - [SearchRequest], [ScrapeRequest], [BatchScrapeRequest]: Firecrawl-style requests
//   - [ExtractRequest], [DeepResearchRequest]: asynchronous job submissions
//   - [APIError]: structured error with type, code, param, message and HTTP status
//
// The package performs no I/O.
package api
