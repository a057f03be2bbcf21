// Package id generates time-ordered identifiers and decodes the timestamp
// embedded in them.
//
// Identifiers are UUIDv7 strings: the leading 48 bits carry unix
// milliseconds, so the canonical form sorts lexicographically by creation
// time.
package id

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PartitionLayout is the date layout used to partition sink writes.
const PartitionLayout = "20060102"

// SentinelPartition is used when an identifier cannot be decoded.
const SentinelPartition = "00000000"

// ErrMalformedID reports an identifier that is not a version 7 UUID.
var ErrMalformedID = errors.New("malformed id")

// Generator creates UUIDv7 strings.
type Generator struct{}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	return New()
}

// New returns a UUIDv7 string. Safe for concurrent use.
func New() (string, error) {
	v, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return v.String(), nil
}

// TimeOf decodes the creation time embedded in id.
func TimeOf(id string) (time.Time, error) {
	v, err := uuid.Parse(id)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedID, id, err)
	}
	if v.Version() != 7 {
		return time.Time{}, fmt.Errorf("%w: %q is version %d", ErrMalformedID, id, v.Version())
	}
	ms := binary.BigEndian.Uint64(v[:8]) >> 16
	return time.UnixMilli(int64(ms)).UTC(), nil
}

// PartitionOf returns the yyyyMMdd partition for id. On a malformed id it
// returns SentinelPartition together with the decode error so callers can
// log it.
func PartitionOf(id string) (string, error) {
	t, err := TimeOf(id)
	if err != nil {
		return SentinelPartition, err
	}
	return t.Format(PartitionLayout), nil
}

// Partition is PartitionOf without the error.
func Partition(id string) string {
	p, _ := PartitionOf(id)
	return p
}

// MustNew is New for callers that cannot return an error. It panics when
// the entropy source fails.
func MustNew() string {
	s, err := New()
	if err != nil {
		panic(err)
	}
	return s
}
