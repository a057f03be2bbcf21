// Package memory keeps inserted rows in-process for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/trademark-crawler/internal/records"
)

// Writer records every inserted row.
type Writer struct {
	mu   sync.Mutex
	rows []records.Row
	// Err, when set, fails every insert.
	Err error
}

// NewWriter creates an empty writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Insert stores a copy of row.
func (w *Writer) Insert(_ context.Context, row records.Row) error {
	if w.Err != nil {
		return w.Err
	}
	row.Data = append([]byte(nil), row.Data...)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = append(w.rows, row)
	return nil
}

// Rows returns the inserted rows in insertion order.
func (w *Writer) Rows() []records.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]records.Row(nil), w.rows...)
}

// Table returns the rows inserted into table.
func (w *Writer) Table(table records.Table) []records.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []records.Row
	for _, r := range w.rows {
		if r.Table == table {
			out = append(out, r)
		}
	}
	return out
}
