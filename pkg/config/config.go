// Package config provides unified configuration for the crawlrouter gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides, including the SEARCH_BACKEND family
//     of variables understood by earlier deployments
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the crawlrouter gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backends      BackendsConfig      `yaml:"backends"`
	Provider      ProviderConfig      `yaml:"provider"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Debug         DebugConfig         `yaml:"debug"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 10m, polls can be long
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MB
}

// BackendsConfig selects where backend definitions come from and which
// backends serve each operation by default.
type BackendsConfig struct {
	// Dir holds search.yaml, scrape.yaml, ... Empty uses the embedded
	// definitions.
	Dir string `yaml:"dir"`

	Search       []string `yaml:"search"`        // default: [searxng]
	Scrape       []string `yaml:"scrape"`        // default: [jina]; also used for batch scrape
	Extract      []string `yaml:"extract"`       // default: [firecrawl]
	DeepResearch []string `yaml:"deep_research"` // default: [firecrawl]

	SearchRotate string `yaml:"search_rotate"` // "sequential" (default) or "random"
	ScrapeRotate string `yaml:"scrape_rotate"` // "sequential" (default) or "random"
}

// ProviderConfig holds outbound call settings.
type ProviderConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"` // default: 10s, per call
	PollInterval   time.Duration `yaml:"poll_interval"`   // default: 1s
	PollTimeout    time.Duration `yaml:"poll_timeout"`    // default: 5m
	MaxBodySize    int64         `yaml:"max_body_size"`   // default: 10 MB
	UserAgent      string        `yaml:"user_agent"`
}

// StorageConfig holds request log settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres" or "none", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type      string          `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // API key entries for type=apikey
	JWT       JWTConfig       `yaml:"jwt"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key      string   `yaml:"key" json:"key"`
	KeyFile  string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject  string   `yaml:"subject" json:"subject"`
	Tenant   string   `yaml:"tenant" json:"tenant"`
	Tier     string   `yaml:"tier" json:"tier"`
	Backends []string `yaml:"backends" json:"backends"` // empty: all backends
}

// JWTConfig holds JWT validation settings for type=jwt.
type JWTConfig struct {
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	JWKSURL       string        `yaml:"jwks_url"`
	UserClaim     string        `yaml:"user_claim"`
	TenantClaim   string        `yaml:"tenant_claim"`
	TierClaim     string        `yaml:"tier_claim"`
	BackendsClaim string        `yaml:"backends_claim"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

// RateLimitConfig sets requests per minute per subject. Zero disables
// rate limiting.
type RateLimitConfig struct {
	DefaultRPM int            `yaml:"default_rpm"`
	Tiers      map[string]int `yaml:"tiers"` // service tier -> requests per minute
}

// MCPConfig holds the MCP server endpoint settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Exporter    string  `yaml:"exporter"` // "otlp-http" (default), "stdout" or "none"
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"` // default: "crawlrouter"
	SampleRate  float64 `yaml:"sample_rate"`  // default: 1.0
}

// DebugConfig holds log settings. CRAWLROUTER_DEBUG and
// CRAWLROUTER_LOG_LEVEL override it at startup.
type DebugConfig struct {
	Categories string `yaml:"categories"` // comma-separated, e.g. "provider,poll"
	Level      string `yaml:"level"`      // default: "INFO"
	Format     string `yaml:"format"`     // "text" (default) or "json"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     10 << 20,
		},
		Backends: BackendsConfig{
			Search:       []string{"searxng"},
			Scrape:       []string{"jina"},
			Extract:      []string{"firecrawl"},
			DeepResearch: []string{"firecrawl"},
			SearchRotate: "sequential",
			ScrapeRotate: "sequential",
		},
		Provider: ProviderConfig{
			DefaultTimeout: 10 * time.Second,
			PollInterval:   time.Second,
			PollTimeout:    5 * time.Minute,
			MaxBodySize:    10 << 20,
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Exporter:    "otlp-http",
				ServiceName: "crawlrouter",
				SampleRate:  1.0,
			},
		},
		Debug: DebugConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
