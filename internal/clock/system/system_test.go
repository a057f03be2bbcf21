// Package system exercises the real-time clock adapter.
package system

import (
	"testing"
	"time"
)

// TestClockNowUTC ensures the clock returns UTC timestamps.
func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestParts(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+8", 8*3600)
	in := time.Date(2024, 3, 1, 20, 15, 30, 987_654_321, loc)

	sec, ms := Parts(in)
	want := time.Date(2024, 3, 1, 12, 15, 30, 0, time.UTC)
	if !sec.Equal(want) || sec.Location() != time.UTC {
		t.Fatalf("Parts seconds = %v, want %v", sec, want)
	}
	if ms != 987 {
		t.Fatalf("Parts ms = %d, want 987", ms)
	}
}

func TestNowPartsRange(t *testing.T) {
	t.Parallel()

	sec, ms := New().NowParts()
	if sec.Nanosecond() != 0 {
		t.Fatalf("expected whole seconds, got %v", sec)
	}
	if ms < 0 || ms > 999 {
		t.Fatalf("ms out of range: %d", ms)
	}
}
