package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/crawlrouter/pkg/selector"
)

// searchPaths are tried in order when neither a path nor
// CRAWLROUTER_CONFIG names the config file.
var searchPaths = []string{"config.yaml", "/etc/crawlrouter/config.yaml"}

// Load builds the configuration from defaults, the YAML file, environment
// overrides and *_file secrets, then validates it. A missing file is not
// an error; the gateway runs on defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path = findFile(path); path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		slog.Debug("config file loaded", "path", path)
	}

	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		if err := o.apply(&cfg, v); err != nil {
			return nil, fmt.Errorf("%s: %w", o.name, err)
		}
	}
	if os.Getenv("LOG_FILE") != "" {
		slog.Warn("LOG_FILE is ignored; the request log is served at GET /v1/requests")
	}

	if err := readSecrets(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func findFile(path string) string {
	if path != "" {
		return path
	}
	if p := os.Getenv("CRAWLROUTER_CONFIG"); p != "" {
		return p
	}
	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// decodeFile overlays the YAML at path onto cfg. Unknown keys are errors.
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type envOverride struct {
	name  string
	apply func(cfg *Config, v string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setList(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = selector.SplitCSV(v)
		return nil
	}
}

// envOverrides lists the environment variables Load honours. The
// unprefixed backend variables keep the names earlier deployments used.
var envOverrides = []envOverride{
	{"SEARCH_BACKEND", setList(func(c *Config) *[]string { return &c.Backends.Search })},
	{"SCRAPE_BACKEND", setList(func(c *Config) *[]string { return &c.Backends.Scrape })},
	{"SEARCH_BACKEND_ROTATE", setString(func(c *Config) *string { return &c.Backends.SearchRotate })},
	{"SCRAPE_BACKEND_ROTATE", setString(func(c *Config) *string { return &c.Backends.ScrapeRotate })},
	{"CRAWLROUTER_BACKENDS_DIR", setString(func(c *Config) *string { return &c.Backends.Dir })},
	{"HTTP_TIMEOUT", func(c *Config, v string) error {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs <= 0 {
			return fmt.Errorf("want a positive number of seconds, got %q", v)
		}
		c.Provider.DefaultTimeout = time.Duration(secs * float64(time.Second))
		return nil
	}},
	{"CRAWLROUTER_PORT", func(c *Config, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("want an integer, got %q", v)
		}
		c.Server.Port = port
		return nil
	}},
	{"CRAWLROUTER_STORAGE", setString(func(c *Config) *string { return &c.Storage.Type })},
	{"CRAWLROUTER_POSTGRES_DSN", setString(func(c *Config) *string { return &c.Storage.Postgres.DSN })},
	{"CRAWLROUTER_AUTH_TYPE", setString(func(c *Config) *string { return &c.Auth.Type })},
	{"CRAWLROUTER_API_KEYS", func(c *Config, v string) error {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			return fmt.Errorf("want a JSON array of keys: %w", err)
		}
		c.Auth.APIKeys = keys
		return nil
	}},
}

// readSecrets fills values from their *_file counterparts. An explicit
// value wins over the file.
func readSecrets(cfg *Config) error {
	type secret struct {
		key   string
		file  string
		value *string
	}
	secrets := []secret{{"storage.postgres.dsn_file", cfg.Storage.Postgres.DSNFile, &cfg.Storage.Postgres.DSN}}
	for i := range cfg.Auth.APIKeys {
		k := &cfg.Auth.APIKeys[i]
		secrets = append(secrets, secret{fmt.Sprintf("auth.api_keys[%d].key_file", i), k.KeyFile, &k.Key})
	}

	for _, s := range secrets {
		if s.file == "" || *s.value != "" {
			continue
		}
		b, err := os.ReadFile(s.file)
		if err != nil {
			return fmt.Errorf("%s: %w", s.key, err)
		}
		*s.value = strings.TrimSpace(string(b))
	}
	return nil
}
