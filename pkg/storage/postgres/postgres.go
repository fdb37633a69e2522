// Package postgres provides a PostgreSQL implementation of transport.RequestLog.
// It uses pgx/v5 for connection pooling. Entries survive restarts and can be
// shared by several gateway replicas.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/crawlrouter/pkg/api"
	"github.com/rhuss/crawlrouter/pkg/storage"
	"github.com/rhuss/crawlrouter/pkg/transport"
)

// Store is a PostgreSQL-backed RequestLog.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements transport.RequestLog at compile time.
var _ transport.RequestLog = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Record persists a log entry. The tenant in ctx overrides entry.Tenant
// when set.
func (s *Store) Record(ctx context.Context, e *api.LogEntry) error {
	if tenantID := storage.TenantFrom(ctx); tenantID != "" {
		e.Tenant = tenantID
	}
	target := e.Target
	if target == nil {
		target = []string{}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO request_log (
			id, tenant_id, created_at, kind, target,
			backend, endpoint, duration, status, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		e.ID, e.Tenant, e.Time.UTC(), string(e.Kind), target,
		e.Backend, e.Endpoint, e.Duration, e.Status, nullString(e.Error),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, tenant_id, created_at, kind, target,
	       backend, endpoint, duration, status, error
	FROM request_log
`

// Get retrieves an entry by ID, scoped by tenant when one is present in
// the context.
func (s *Store) Get(ctx context.Context, id string) (*api.LogEntry, error) {
	query := selectColumns + " WHERE id = $1"
	args := []any{id}

	if tenantID := storage.TenantFrom(ctx); tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	e, err := scanEntry(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying log entry: %w", err)
	}
	return e, nil
}

// List returns a page of entries filtered by tenant, kind and backend.
// The after and before cursors are entry IDs; an unknown cursor yields an
// empty page.
func (s *Store) List(ctx context.Context, opts transport.ListOptions) (*api.LogList, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if tenantID := storage.TenantFrom(ctx); tenantID != "" {
		where = append(where, "tenant_id = "+arg(tenantID))
	}
	if opts.Kind != "" {
		where = append(where, "kind = "+arg(string(opts.Kind)))
	}
	if opts.Backend != "" {
		where = append(where, "backend = "+arg(opts.Backend))
	}

	asc := opts.Order == "asc"
	cursor, forward := opts.After, true
	if cursor == "" && opts.Before != "" {
		cursor, forward = opts.Before, false
	}
	if cursor != "" {
		// Rows past the cursor in list order, or ahead of it for "before".
		op := "<"
		if asc == forward {
			op = ">"
		}
		ref := arg(cursor)
		where = append(where, fmt.Sprintf(
			"(created_at, id) %s (SELECT created_at, id FROM request_log WHERE id = %s)", op, ref))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	limit := storage.ClampLimit(opts.Limit)
	query += fmt.Sprintf(" ORDER BY created_at %s, id %s LIMIT %s", dir, dir, arg(limit+1))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}
	defer rows.Close()

	result := &api.LogList{Object: "list", Data: []*api.LogEntry{}}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning log entry: %w", err)
		}
		result.Data = append(result.Data, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing log entries: %w", err)
	}

	if len(result.Data) > limit {
		result.Data = result.Data[:limit]
		result.HasMore = true
	}
	if n := len(result.Data); n > 0 {
		result.FirstID = result.Data[0].ID
		result.LastID = result.Data[n-1].ID
	}
	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanEntry(row pgx.Row) (*api.LogEntry, error) {
	var e api.LogEntry
	var kind string
	var created time.Time
	var errMsg *string

	if err := row.Scan(
		&e.ID, &e.Tenant, &created, &kind, &e.Target,
		&e.Backend, &e.Endpoint, &e.Duration, &e.Status, &errMsg,
	); err != nil {
		return nil, err
	}
	e.Kind = api.Kind(kind)
	e.Time = created.UTC()
	if errMsg != nil {
		e.Error = *errMsg
	}
	return &e, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
