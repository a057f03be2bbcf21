// Package records persists Navigation, Mark and Coverage rows to a remote
// writer and, optionally, to per-type local directories.
//
// Save never returns an error. A failed encode, insert or local write is
// logged with the row body and counted, and the other destinations still
// run.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/trademark-crawler/internal/id"
	"github.com/JakeFAU/trademark-crawler/internal/mark"
	"github.com/JakeFAU/trademark-crawler/internal/metrics"
	"github.com/JakeFAU/trademark-crawler/internal/navigation"
	"github.com/JakeFAU/trademark-crawler/internal/storage"
)

// Table names a destination table.
type Table string

// Known tables.
const (
	Navigations Table = "navigations"
	Marks       Table = "marks"
	Coverages   Table = "coverages"
)

// Record is anything the sink can persist.
type Record interface {
	RecordID() string
	// RecordAttempt reports the attempt number, when the type has one.
	RecordAttempt() (int, bool)
	RecordType() string
}

// Row is one encoded record bound for a table.
type Row struct {
	Table   Table
	ID      string
	Attempt int
	Data    []byte
}

// Writer inserts a row into a remote store.
type Writer interface {
	Insert(ctx context.Context, row Row) error
}

// Option configures a Sink.
type Option func(*Sink)

// WithWriter sets the remote writer.
func WithWriter(w Writer) Option {
	return func(s *Sink) { s.writer = w }
}

// WithLocalDir mirrors rows of table into store.
func WithLocalDir(table Table, store storage.BlobStore) Option {
	return func(s *Sink) {
		if store != nil {
			s.local[table] = store
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Sink) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sink fans a record out to the remote writer and the local mirror.
type Sink struct {
	writer Writer
	local  map[Table]storage.BlobStore
	logger *zap.Logger
}

// NewSink builds a sink. With no options it logs and drops every row.
func NewSink(opts ...Option) *Sink {
	s := &Sink{local: make(map[Table]storage.BlobStore), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("records")
	return s
}

// Save persists rec to table.
func (s *Sink) Save(ctx context.Context, table Table, rec Record) {
	if s == nil || rec == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		metrics.ObserveRecordWrite(string(table), "encode", err)
		s.logger.Error("record encode failed",
			zap.String("table", string(table)), zap.String("id", rec.RecordID()), zap.Error(err))
		return
	}
	attempt, _ := rec.RecordAttempt()
	row := Row{Table: table, ID: rec.RecordID(), Attempt: attempt, Data: data}

	// Both destinations run to completion; neither failure cancels the other.
	// Each branch logs and counts its own failure and returns nil, so Save
	// never surfaces an error.
	var g errgroup.Group
	g.Go(func() error {
		s.insert(ctx, row)
		return nil
	})
	g.Go(func() error {
		s.writeLocal(ctx, row, rec)
		return nil
	})
	_ = g.Wait()
}

// SaveNavigation persists an ended navigation.
func (s *Sink) SaveNavigation(ctx context.Context, nav *navigation.Navigation) {
	if nav == nil {
		return
	}
	s.Save(ctx, Navigations, nav)
}

// SaveMark persists a mark.
func (s *Sink) SaveMark(ctx context.Context, m *mark.Mark) {
	if m == nil {
		return
	}
	s.Save(ctx, Marks, m)
}

// SaveCoverage persists a coverage row.
func (s *Sink) SaveCoverage(ctx context.Context, c *mark.Coverage) {
	if c == nil {
		return
	}
	s.Save(ctx, Coverages, c)
}

func (s *Sink) insert(ctx context.Context, row Row) {
	if s.writer == nil {
		s.logger.Warn("record writer not configured; row dropped",
			zap.String("table", string(row.Table)), zap.String("id", row.ID), zap.ByteString("body", row.Data))
		return
	}
	err := s.writer.Insert(ctx, row)
	metrics.ObserveRecordWrite(string(row.Table), "insert", err)
	if err != nil {
		s.logger.Error("record insert failed",
			zap.String("table", string(row.Table)), zap.String("id", row.ID),
			zap.ByteString("body", row.Data), zap.Error(err))
	}
}

func (s *Sink) writeLocal(ctx context.Context, row Row, rec Record) {
	store, ok := s.local[row.Table]
	if !ok {
		return
	}
	name, err := LocalName(rec)
	if err != nil {
		s.logger.Error("record id has no decodable timestamp; using sentinel partition",
			zap.String("id", row.ID), zap.String("path", name), zap.Error(err))
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, row.Data, "", "  "); err != nil {
		pretty.Reset()
		pretty.Write(row.Data)
	}
	_, err = store.PutObject(ctx, name, "application/json", &pretty)
	metrics.ObserveRecordWrite(string(row.Table), "local", err)
	if err != nil {
		s.logger.Error("record local write failed",
			zap.String("table", string(row.Table)), zap.String("id", row.ID),
			zap.ByteString("body", row.Data), zap.Error(err))
	}
}

// LocalName returns {yyyyMMdd}/{id}_{attempt}_{Type}.json. Records without
// an attempt leave that slot empty.
func LocalName(rec Record) (string, error) {
	partition, err := id.PartitionOf(rec.RecordID())
	attempt := ""
	if n, ok := rec.RecordAttempt(); ok {
		attempt = fmt.Sprint(n)
	}
	return fmt.Sprintf("%s/%s_%s_%s.json", partition, rec.RecordID(), attempt, rec.RecordType()), err
}
