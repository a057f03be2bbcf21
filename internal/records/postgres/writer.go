// Package postgres stores rows as JSONB in one Postgres table per record
// type.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/trademark-crawler/internal/records"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Schema          string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// Writer upserts rows keyed by record id.
type Writer struct {
	pool   execCloser
	schema string
}

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	w, err := NewWithPool(pool, cfg.Schema)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return w, nil
}

// NewWithPool constructs a writer from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, schema string) (*Writer, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if schema == "" {
		schema = "public"
	}
	if !validTableName.MatchString(schema) {
		return nil, fmt.Errorf("invalid schema name %q", schema)
	}
	return &Writer{pool: pool, schema: schema}, nil
}

// Ping checks the pool can reach the server.
func (w *Writer) Ping(ctx context.Context) error {
	if err := w.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (w *Writer) Close() {
	if w == nil || w.pool == nil {
		return
	}
	w.pool.Close()
}

func (w *Writer) qualified(table records.Table) (string, error) {
	if !validTableName.MatchString(string(table)) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return w.schema + "." + string(table), nil
}

// Migrate creates the record tables when missing.
func (w *Writer) Migrate(ctx context.Context) error {
	for _, table := range []records.Table{records.Navigations, records.Marks, records.Coverages} {
		name, err := w.qualified(table)
		if err != nil {
			return err
		}
		query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	attempt INTEGER NOT NULL DEFAULT 0,
	payload JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, name)
		if _, err := w.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
	}
	return nil
}

// Insert upserts row. A row for an older attempt never replaces a newer one.
func (w *Writer) Insert(ctx context.Context, row records.Row) error {
	if w == nil || w.pool == nil {
		return fmt.Errorf("postgres writer is not configured")
	}
	if row.ID == "" {
		return fmt.Errorf("record id is required")
	}
	name, err := w.qualified(row.Table)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %[1]s (id, attempt, payload, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (id) DO UPDATE
SET attempt = EXCLUDED.attempt, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
WHERE %[1]s.attempt <= EXCLUDED.attempt`, name)

	if _, err := w.pool.Exec(ctx, query, row.ID, row.Attempt, row.Data); err != nil {
		return fmt.Errorf("insert %s: %w", row.Table, err)
	}
	return nil
}
