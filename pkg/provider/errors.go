package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/rhuss/crawlrouter/pkg/api"
)

// errorBodyLimit bounds how much of an error body is kept in the message.
const errorBodyLimit = 4096

// MapHTTPError converts a provider response with a non-2xx status code into
// an upstream_error that carries the provider's status.
func MapHTTPError(method string, target *url.URL, resp *http.Response) *api.APIError {
	body := readErrorBody(resp.Body)
	msg := fmt.Sprintf("%s %s returned %d", method, redact(target), resp.StatusCode)
	if body != "" {
		msg += ": " + body
	}
	return api.NewUpstreamError(resp.StatusCode, msg)
}

// MapNetworkError converts a failure to reach the provider (connection
// refused, timeout, DNS resolution failure) into a transport_error. Errors
// that are not network related become a generic server_error.
func MapNetworkError(err error) *api.APIError {
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr), errors.As(err, &urlErr):
		return api.NewTransportError(err.Error())
	default:
		return api.NewAdapterError(err.Error())
	}
}

func readErrorBody(r io.Reader) string {
	if r == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r, errorBodyLimit))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// redact drops the query string, which often carries API keys.
func redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Scheme + "://" + u.Host + u.Path
}
