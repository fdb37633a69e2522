package postgres

import "time"

// Config holds PostgreSQL connection settings for the request log.
type Config struct {
	// DSN is the PostgreSQL connection string, for example
	// "postgres://crawl:secret@db:5432/crawlrouter?sslmode=require".
	DSN string

	// MaxConns caps the pool size (default: 10).
	MaxConns int32

	// MinConns is the number of idle connections kept open (default: 2).
	MinConns int32

	// MaxConnLifetime recycles connections after this age (default: 30m).
	MaxConnLifetime time.Duration

	// MigrateOnStart creates the request_log table at startup.
	MigrateOnStart bool
}

func (c *Config) defaults() {
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = 30 * time.Minute
	}
}
