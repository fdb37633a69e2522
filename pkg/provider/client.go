package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/debug"
	"github.com/rhuss/crawlrouter/pkg/observability"
	"github.com/rhuss/crawlrouter/pkg/render"
)

// Defaults applied when a request config does not set them.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxBodySize = 10 << 20 // 10MB
)

// Keys of a rendered request config.
const (
	KeyURL        = "url"
	KeyMethod     = "method"
	KeyHeaders    = "headers"
	KeyParameters = "parameters"
	KeyData       = "data"
	KeyBody       = "body"
	KeyTimeout    = "timeout"
)

// Caller executes one rendered request config.
type Caller interface {
	Call(ctx context.Context, cfg map[string]any) (map[string]any, error)
}

// Getter fetches a URL with the given headers. The Poller uses it to check
// job status.
type Getter interface {
	Get(ctx context.Context, rawURL string, headers map[string]any) (map[string]any, error)
}

// Client performs HTTP requests against search and scrape providers.
type Client struct {
	httpClient     *http.Client
	defaultTimeout time.Duration
	maxBodySize    int64
	userAgent      string
}

// Compile-time interface checks.
var (
	_ Caller = (*Client)(nil)
	_ Getter = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Its Timeout should be
// zero; per-call timeouts come from the request config.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDefaultTimeout sets the timeout used when a config has none.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

// WithMaxBodySize bounds the size of a provider response body.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent sent when a config sets none.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a new Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:     &http.Client{},
		defaultTimeout: DefaultTimeout,
		maxBodySize:    DefaultMaxBodySize,
		userAgent:      "crawlrouter",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Call executes a rendered and pruned request config. The method defaults
// to GET. parameters become the query string; for POST, PUT and PATCH the
// data mapping (or body, if data is absent) is sent as JSON. timeout is in
// milliseconds and bounds this single call.
//
// The reply is decoded as JSON. A body that is not JSON is returned as
// {"text": body}; JSON that is not an object is returned as {"data": value}.
func (c *Client) Call(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	rawURL, _ := cfg[KeyURL].(string)
	if rawURL == "" {
		return nil, api.NewConfigError("Missing URL in configuration")
	}

	method := http.MethodGet
	if m, ok := cfg[KeyMethod].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, api.NewAdapterError(fmt.Sprintf("invalid url %q: %s", rawURL, err))
	}
	if params, ok := cfg[KeyParameters].(map[string]any); ok && len(params) > 0 {
		q := target.Query()
		for _, k := range sortedKeys(params) {
			addParam(q, k, params[k])
		}
		target.RawQuery = q.Encode()
	}

	var body io.Reader
	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		data, ok := cfg[KeyData]
		if !ok {
			data, ok = cfg[KeyBody]
		}
		if ok && !render.IsMissing(data) {
			b, err := json.Marshal(data)
			if err != nil {
				return nil, api.NewAdapterError(fmt.Sprintf("failed to marshal request body: %s", err))
			}
			body = bytes.NewReader(b)
		}
	}

	headers, _ := cfg[KeyHeaders].(map[string]any)
	timeout := c.timeout(cfg[KeyTimeout])
	return c.do(ctx, method, target, headers, body, timeout)
}

// Get performs a GET request with the client's default timeout.
func (c *Client) Get(ctx context.Context, rawURL string, headers map[string]any) (map[string]any, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, api.NewAdapterError(fmt.Sprintf("invalid url %q: %s", rawURL, err))
	}
	return c.do(ctx, http.MethodGet, target, headers, nil, c.defaultTimeout)
}

func (c *Client) do(ctx context.Context, method string, target *url.URL, headers map[string]any, body io.Reader, timeout time.Duration) (map[string]any, error) {
	ctx, span := observability.StartClientSpan(ctx, "provider.call",
		observability.AttrMethod.String(method),
		observability.AttrURL.String(redact(target)),
	)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, target.String(), body)
	if err != nil {
		return nil, api.NewAdapterError(fmt.Sprintf("failed to create HTTP request: %s", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		if s := stringify(v); s != "" {
			req.Header.Set(k, s)
		}
	}

	debug.Log("provider", "call", "method", method, "url", redact(target), "timeout", timeout)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.ProviderCallsTotal.WithLabelValues(method, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		// The caller went away; report that rather than a provider failure.
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, MapNetworkError(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(observability.AttrStatus.Int(resp.StatusCode))
	observability.ProviderCallsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
	debug.Log("provider", "reply", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, MapHTTPError(method, target, resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, MapNetworkError(err)
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, api.NewAdapterError(fmt.Sprintf("response body exceeds %d bytes", c.maxBodySize))
	}
	debug.Raw("provider", string(data))
	return Decode(data), nil
}

// Decode interprets a provider reply body.
func Decode(data []byte) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return map[string]any{"text": string(data)}
	}
	v = render.Normalize(v)
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"data": v}
}

// timeout converts a config timeout in milliseconds.
func (c *Client) timeout(v any) time.Duration {
	var ms float64
	switch t := v.(type) {
	case int:
		ms = float64(t)
	case int64:
		ms = float64(t)
	case float64:
		ms = t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return c.defaultTimeout
		}
		ms = f
	default:
		return c.defaultTimeout
	}
	if ms <= 0 {
		return c.defaultTimeout
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func addParam(q url.Values, key string, v any) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s := stringify(item); s != "" {
				q.Add(key, s)
			}
		}
	default:
		if s := stringify(v); s != "" {
			q.Add(key, s)
		}
	}
}

// stringify renders a header or query value. Mappings and lists are sent
// as JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		if render.IsMissing(v) {
			return ""
		}
		return fmt.Sprint(t)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
