package config

import (
	"errors"
	"fmt"

	"github.com/rhuss/crawlrouter/pkg/selector"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported at once, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	for field, mode := range map[string]string{
		"backends.search_rotate": c.Backends.SearchRotate,
		"backends.scrape_rotate": c.Backends.ScrapeRotate,
	} {
		if _, err := selector.New(mode); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	if c.Provider.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("provider.default_timeout must be > 0, got %v", c.Provider.DefaultTimeout))
	}
	if c.Provider.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("provider.poll_interval must be > 0, got %v", c.Provider.PollInterval))
	}
	if c.Provider.PollTimeout < c.Provider.PollInterval {
		errs = append(errs, fmt.Errorf("provider.poll_timeout (%v) must not be shorter than provider.poll_interval (%v)",
			c.Provider.PollTimeout, c.Provider.PollInterval))
	}

	switch c.Storage.Type {
	case "memory", "none":
	case "postgres":
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\" or \"none\", got %q", c.Storage.Type))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
			}
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			errs = append(errs, fmt.Errorf("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.MCP.Enabled && c.MCP.Path == "" {
		errs = append(errs, fmt.Errorf("mcp.path is required when mcp.enabled is true"))
	}
	if c.Observability.Metrics.Enabled && c.Observability.Metrics.Path == "" {
		errs = append(errs, fmt.Errorf("observability.metrics.path is required when metrics are enabled"))
	}
	switch c.Observability.Tracing.Exporter {
	case "otlp-http", "stdout", "none", "":
	default:
		errs = append(errs, fmt.Errorf("observability.tracing.exporter must be \"otlp-http\", \"stdout\" or \"none\", got %q",
			c.Observability.Tracing.Exporter))
	}

	return errors.Join(errs...)
}
