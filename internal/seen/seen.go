// Package seen tracks request keys that have already been attempted so a
// resumed crawl skips them.
package seen

import "context"

// Store records keys.
type Store interface {
	// Seen reports whether key was recorded.
	Seen(ctx context.Context, key string) (bool, error)
	// MarkSeen records key and reports whether this was its first sighting.
	MarkSeen(ctx context.Context, key string) (bool, error)
}

// Nop remembers nothing.
type Nop struct{}

// Seen always reports false.
func (Nop) Seen(context.Context, string) (bool, error) { return false, nil }

// MarkSeen always reports a first sighting.
func (Nop) MarkSeen(context.Context, string) (bool, error) { return true, nil }
