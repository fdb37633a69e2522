// Package engine implements the configuration-driven adapter at the core
// of crawlrouter. Given an operation kind, a backend name and a normalized
// request, the Engine renders the backend's request template, performs the
// provider call (polling asynchronous jobs to completion), and renders the
// response template into the normalized result. Search results can be
// enriched with page content through a BatchScraper when the search
// backend does not scrape by itself. Optional collaborators (request log,
// batch scraper) use nil-safe composition.
package engine
