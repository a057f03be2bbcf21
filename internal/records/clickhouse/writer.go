// Package clickhouse inserts rows with clickhouse-go as asynchronous
// JSONEachRow inserts.
package clickhouse

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/cenkalti/backoff/v4"

	"github.com/JakeFAU/trademark-crawler/internal/records"
)

// Config holds connection settings. URL takes http(s):// for the HTTP
// interface and clickhouse:// for the native protocol.
type Config struct {
	URL      string
	Database string
	User     string
	Key      string
	// MaxElapsed bounds the retry window for one insert.
	MaxElapsed time.Duration
	MaxRetries uint64
	Timeout    time.Duration
}

// Conn is the part of driver.Conn the writer uses.
type Conn interface {
	Exec(ctx context.Context, query string, args ...any) error
	Ping(ctx context.Context) error
	Close() error
}

// Writer inserts rows into ClickHouse.
type Writer struct {
	cfg  Config
	conn Conn
}

// Server error codes that no retry will fix.
var permanentCodes = map[int32]bool{
	16:  true, // NO_SUCH_COLUMN_IN_TABLE
	26:  true, // CANNOT_PARSE_QUOTED_STRING
	27:  true, // CANNOT_PARSE_INPUT_ASSERTION_FAILED
	60:  true, // UNKNOWN_TABLE
	62:  true, // SYNTAX_ERROR
	81:  true, // UNKNOWN_DATABASE
	117: true, // INCORRECT_DATA
	497: true, // ACCESS_DENIED
	516: true, // AUTHENTICATION_FAILED
}

// New validates cfg and builds a writer. A nil conn is opened from cfg.
func New(cfg Config, conn Conn) (*Writer, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("clickhouse url is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("clickhouse database is required")
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if conn == nil {
		opts, err := Options(cfg)
		if err != nil {
			return nil, err
		}
		if conn, err = clickhouse.Open(opts); err != nil {
			return nil, fmt.Errorf("open clickhouse: %w", err)
		}
	}
	return &Writer{cfg: cfg, conn: conn}, nil
}

// Options maps cfg onto clickhouse-go options. Inserts are asynchronous on
// the server and the call waits for the flush.
func Options(cfg Config) (*clickhouse.Options, error) {
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("clickhouse url %q has no host", cfg.URL)
	}
	opts := &clickhouse.Options{
		Addr: []string{u.Host},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Key,
		},
		Settings: clickhouse.Settings{
			"async_insert":                    1,
			"wait_for_async_insert":           1,
			"date_time_input_format":          "best_effort",
			"input_format_import_nested_json": 1,
		},
		DialTimeout: cfg.Timeout,
		ReadTimeout: cfg.Timeout,
	}
	switch u.Scheme {
	case "http":
		opts.Protocol = clickhouse.HTTP
	case "https":
		opts.Protocol = clickhouse.HTTP
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	case "clickhouse", "tcp":
		opts.Protocol = clickhouse.Native
	default:
		return nil, fmt.Errorf("unsupported clickhouse scheme %q", u.Scheme)
	}
	return opts, nil
}

// InsertQuery returns the statement carrying one JSON row for table.
func InsertQuery(table records.Table, data []byte) string {
	return fmt.Sprintf("INSERT INTO `%s` FORMAT JSONEachRow %s", table, data)
}

// Insert writes one JSON line. Transport failures and transient server
// errors are retried with exponential backoff; rejected rows are not.
func (w *Writer) Insert(ctx context.Context, row records.Row) error {
	query := InsertQuery(row.Table, row.Data)
	op := func() error {
		if err := w.conn.Exec(ctx, query); err != nil {
			if rejected(err) {
				return backoff.Permanent(fmt.Errorf("clickhouse rejected row: %w", err))
			}
			return fmt.Errorf("exec insert: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = w.cfg.MaxElapsed
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, w.cfg.MaxRetries), ctx)); err != nil {
		return fmt.Errorf("insert into %s: %w", row.Table, err)
	}
	return nil
}

// Ping checks the server is reachable.
func (w *Writer) Ping(ctx context.Context) error {
	if err := w.conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping clickhouse: %w", err)
	}
	return nil
}

// Close releases the connection.
func (w *Writer) Close() error {
	if err := w.conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse: %w", err)
	}
	return nil
}

func rejected(err error) bool {
	var ex *clickhouse.Exception
	return errors.As(err, &ex) && permanentCodes[ex.Code]
}
