// Package memory keeps seen keys in a bounded in-process LRU.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultSize bounds the number of remembered keys.
const DefaultSize = 100_000

// Store is an LRU-backed seen registry. Keys evicted by size or TTL are
// treated as new again.
type Store struct {
	mu  sync.Mutex
	lru *expirable.LRU[string, struct{}]
}

// New creates a store holding at most size keys for ttl. A zero ttl keeps
// keys until evicted by size.
func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	return &Store{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// MarkSeen implements seen.Store.
func (s *Store) MarkSeen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lru.Get(key); ok {
		return false, nil
	}
	s.lru.Add(key, struct{}{})
	return true, nil
}

// Seen implements seen.Store.
func (s *Store) Seen(_ context.Context, key string) (bool, error) {
	_, ok := s.lru.Peek(key)
	return ok, nil
}

// Len reports the number of remembered keys.
func (s *Store) Len() int {
	return s.lru.Len()
}
