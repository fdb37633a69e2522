package engine

import "time"

// Config holds configuration for the engine.
type Config struct {
	// PollInterval is used when a _poll block sets no interval.
	PollInterval time.Duration

	// PollTimeout is used when a _poll block sets no timeout. Zero or
	// negative means the default of 5 minutes.
	PollTimeout time.Duration

	// Env is the base context layer every template sees. Nil means the
	// process environment.
	Env map[string]any
}

func (c Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return time.Second
	}
	return c.PollInterval
}

func (c Config) pollTimeout() time.Duration {
	if c.PollTimeout <= 0 {
		return 5 * time.Minute
	}
	return c.PollTimeout
}
