package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Request defaults.
const (
	DefaultSearchLimit    = 5
	DefaultSearchLang     = "en"
	DefaultSearchCountry  = "us"
	DefaultSearchTimeout  = 60000
	DefaultScrapeTimeout  = 30000
	DefaultPlaywrightWait = 15000
	DefaultMaxDepth       = 7
	DefaultTimeLimit      = 300
)

var validFormats = map[string]bool{
	FormatMarkdown:           true,
	FormatHTML:               true,
	FormatRawHTML:            true,
	FormatLinks:              true,
	FormatScreenshot:         true,
	FormatScreenshotFullPage: true,
	FormatJSON:               true,
}

// ValidateSearchRequest checks a SearchRequest and fills in defaults. It
// returns an *APIError describing the first validation failure, or nil if
// the request is valid.
func ValidateSearchRequest(req *SearchRequest) *APIError {
	if strings.TrimSpace(req.Query) == "" {
		return NewInvalidRequestError("query", "query is required")
	}
	if req.Limit < 0 {
		return NewInvalidRequestError("limit", "limit must be positive")
	}
	if req.Limit == 0 {
		req.Limit = DefaultSearchLimit
	}
	if req.Timeout < 0 {
		return NewInvalidRequestError("timeout", "timeout must not be negative")
	}
	if req.Timeout == 0 {
		req.Timeout = DefaultSearchTimeout
	}
	if req.Lang == "" {
		req.Lang = DefaultSearchLang
	}
	if req.Country == "" {
		req.Country = DefaultSearchCountry
	}
	if req.ScrapeOptions != nil {
		if err := validateFormats("scrapeOptions.formats", req.ScrapeOptions.Formats); err != nil {
			return err
		}
	}
	return nil
}

// ValidateScrapeRequest checks a ScrapeRequest and fills in defaults.
func ValidateScrapeRequest(req *ScrapeRequest) *APIError {
	if err := validateURL("url", req.URL); err != nil {
		return err
	}
	return validatePageOptions(&req.PageOptions)
}

// ValidateBatchScrapeRequest checks a BatchScrapeRequest and fills in defaults.
func ValidateBatchScrapeRequest(req *BatchScrapeRequest) *APIError {
	if len(req.URLs) == 0 {
		return NewInvalidRequestError("urls", "urls must contain at least one URL")
	}
	for i, u := range req.URLs {
		if err := validateURL(fmt.Sprintf("urls[%d]", i), u); err != nil {
			return err
		}
	}
	return validatePageOptions(&req.PageOptions)
}

// ValidateExtractRequest checks an ExtractRequest and fills in defaults.
func ValidateExtractRequest(req *ExtractRequest) *APIError {
	if len(req.URLs) == 0 {
		return NewInvalidRequestError("urls", "urls must contain at least one URL")
	}
	for i, u := range req.URLs {
		if err := validateURL(fmt.Sprintf("urls[%d]", i), u); err != nil {
			return err
		}
	}
	if req.IncludeSubdomains == nil {
		req.IncludeSubdomains = boolPtr(true)
	}
	if req.ScrapeOptions == nil {
		req.ScrapeOptions = map[string]any{"onlyMainContent": true}
	}
	return nil
}

// ValidateDeepResearchRequest checks a DeepResearchRequest and fills in defaults.
func ValidateDeepResearchRequest(req *DeepResearchRequest) *APIError {
	if strings.TrimSpace(req.Topic) == "" {
		return NewInvalidRequestError("topic", "topic is required")
	}
	if req.MaxDepth == 0 {
		req.MaxDepth = DefaultMaxDepth
	}
	if req.MaxDepth < 1 || req.MaxDepth > 10 {
		return NewInvalidRequestError("maxDepth", "maxDepth must be between 1 and 10")
	}
	if req.TimeLimit == 0 {
		req.TimeLimit = DefaultTimeLimit
	}
	if req.TimeLimit < 30 || req.TimeLimit > 600 {
		return NewInvalidRequestError("timeLimit", "timeLimit must be between 30 and 600")
	}
	return nil
}

// ValidatePlaywrightRequest checks a PlaywrightRequest and fills in defaults.
func ValidatePlaywrightRequest(req *PlaywrightRequest) *APIError {
	if err := validateURL("url", req.URL); err != nil {
		return err
	}
	if req.Timeout < 0 || req.WaitAfterLoad < 0 {
		return NewInvalidRequestError("timeout", "timeout must not be negative")
	}
	if req.Timeout == 0 {
		req.Timeout = DefaultPlaywrightWait
	}
	return nil
}

func validatePageOptions(opts *PageOptions) *APIError {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{FormatMarkdown}
	}
	if err := validateFormats("formats", opts.Formats); err != nil {
		return err
	}
	if opts.OnlyMainContent == nil {
		opts.OnlyMainContent = boolPtr(true)
	}
	if opts.BlockAds == nil {
		opts.BlockAds = boolPtr(true)
	}
	if opts.WaitFor < 0 {
		return NewInvalidRequestError("waitFor", "waitFor must not be negative")
	}
	if opts.Timeout < 0 {
		return NewInvalidRequestError("timeout", "timeout must not be negative")
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultScrapeTimeout
	}
	if opts.Proxy != "" && opts.Proxy != "basic" && opts.Proxy != "stealth" {
		return NewInvalidRequestError("proxy", "proxy must be 'basic' or 'stealth'")
	}
	return nil
}

func validateFormats(param string, formats []string) *APIError {
	for _, f := range formats {
		if !validFormats[f] {
			return NewInvalidRequestError(param, fmt.Sprintf("unsupported format %q", f))
		}
	}
	return nil
}

func validateURL(param, raw string) *APIError {
	if raw == "" {
		return NewInvalidRequestError(param, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewInvalidRequestError(param, fmt.Sprintf("%q is not an absolute http(s) URL", raw))
	}
	return nil
}

func boolPtr(b bool) *bool { return &b }
