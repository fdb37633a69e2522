package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rhuss/crawlrouter/pkg/render"
)

// ---------------------------------------------------------------------------
// Operation kinds
// ---------------------------------------------------------------------------

// Kind is an operation family. Each kind has its own set of backend
// definitions.
type Kind string

const (
	KindSearch       Kind = "search"
	KindScrape       Kind = "scrape"
	KindBatchScrape  Kind = "batch_scrape"
	KindExtract      Kind = "extract"
	KindDeepResearch Kind = "deep_research"
)

// Kinds lists every operation kind in a stable order.
var Kinds = []Kind{KindSearch, KindScrape, KindBatchScrape, KindExtract, KindDeepResearch}

// ParseKind converts a string into a Kind. Both "batch_scrape" and
// "batch-scrape" spellings are accepted.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "batch-scrape":
		return KindBatchScrape, nil
	case "deep-research":
		return KindDeepResearch, nil
	}
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// RotationGroup returns the kind whose backend list and rotation cursor k
// shares. Batch scrape draws from the scrape backends.
func (k Kind) RotationGroup() Kind {
	if k == KindBatchScrape {
		return KindScrape
	}
	return k
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// Formats a scrape can return.
const (
	FormatMarkdown           = "markdown"
	FormatHTML               = "html"
	FormatRawHTML            = "rawHtml"
	FormatLinks              = "links"
	FormatScreenshot         = "screenshot"
	FormatScreenshotFullPage = "screenshot@fullPage"
	FormatJSON               = "json"
)

// ScrapeOptions asks a search to also scrape every result.
type ScrapeOptions struct {
	Formats []string `json:"formats,omitempty"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Query         string         `json:"query"`
	Limit         int            `json:"limit,omitempty"`
	TBS           string         `json:"tbs,omitempty"`
	Lang          string         `json:"lang,omitempty"`
	Country       string         `json:"country,omitempty"`
	Location      string         `json:"location,omitempty"`
	Timeout       int            `json:"timeout,omitempty"`
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// WantsScrape reports whether the client asked for the results to be scraped.
func (r *SearchRequest) WantsScrape() bool {
	return r.ScrapeOptions != nil && len(r.ScrapeOptions.Formats) > 0
}

// PageOptions control how a single page is scraped. They are shared by
// single and batch scrape requests.
type PageOptions struct {
	Formats             []string          `json:"formats,omitempty"`
	OnlyMainContent     *bool             `json:"onlyMainContent,omitempty"`
	IncludeTags         []string          `json:"includeTags,omitempty"`
	ExcludeTags         []string          `json:"excludeTags,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
	WaitFor             int               `json:"waitFor"`
	Mobile              bool              `json:"mobile"`
	SkipTLSVerification bool              `json:"skipTlsVerification"`
	Timeout             int               `json:"timeout,omitempty"`
	JSONOptions         map[string]any    `json:"jsonOptions,omitempty"`
	Actions             []map[string]any  `json:"actions,omitempty"`
	Location            map[string]any    `json:"location,omitempty"`
	RemoveBase64Images  bool              `json:"removeBase64Images"`
	BlockAds            *bool             `json:"blockAds,omitempty"`
	Proxy               string            `json:"proxy,omitempty"`
}

// ScrapeRequest is the body of POST /v1/scrape.
type ScrapeRequest struct {
	URL string `json:"url"`
	PageOptions
}

// BatchScrapeRequest is the body of POST /v1/batch/scrape.
type BatchScrapeRequest struct {
	URLs []string `json:"urls"`
	PageOptions
}

// ExtractRequest is the body of POST /v1/extract.
type ExtractRequest struct {
	URLs              []string       `json:"urls"`
	Prompt            string         `json:"prompt,omitempty"`
	IgnoreSitemap     bool           `json:"ignoreSitemap"`
	IncludeSubdomains *bool          `json:"includeSubdomains,omitempty"`
	EnableWebSearch   bool           `json:"enableWebSearch"`
	ScrapeOptions     map[string]any `json:"scrapeOptions,omitempty"`
	ShowSources       bool           `json:"showSources"`
}

// DeepResearchRequest is the body of POST /v1/deep-research.
type DeepResearchRequest struct {
	Topic     string `json:"topic"`
	MaxDepth  int    `json:"maxDepth,omitempty"`
	TimeLimit int    `json:"timeLimit,omitempty"`
}

// PlaywrightRequest is the body of the playwright-service compatible
// POST /scrape endpoint.
type PlaywrightRequest struct {
	URL           string            `json:"url"`
	WaitAfterLoad int               `json:"wait_after_load,omitempty"`
	Timeout       int               `json:"timeout,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// PlaywrightResponse is the reply of POST /scrape.
type PlaywrightResponse struct {
	Content        string `json:"content"`
	PageStatusCode int    `json:"pageStatusCode"`
}

// Context flattens a request into a template context layer. Field names
// follow the JSON wire names, so a definition refers to {{ query }} or
// {{ scrapeOptions.formats }}.
func Context(req any) (map[string]any, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return render.Normalize(m).(map[string]any), nil
}

// Target returns what a normalized request operates on, for the request
// log: the query of a search, the URL(s) of a scrape, the prompt of an
// extract (falling back to its URLs) or the topic of a deep research.
func Target(req map[string]any) []string {
	for _, key := range []string{"query", "url", "prompt", "topic"} {
		if s, ok := req[key].(string); ok && s != "" {
			return []string{s}
		}
	}
	items, _ := req["urls"].([]any)
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
