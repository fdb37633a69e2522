// Package provider executes rendered backend requests against third-party
// search and scrape providers.
//
// A Client turns one rendered and pruned request config (url, method,
// headers, parameters, data, timeout) into a single HTTP call and decodes
// the reply into a mapping the response template can be rendered against.
// A Poller drives asynchronous provider jobs to completion by repeatedly
// fetching their result URL.
//
// Failures are reported as *api.APIError values: upstream_error for non-2xx
// replies (carrying the provider's status), transport_error for network
// failures and server_error for anything else.
package provider
