// Package redis keeps seen keys in Redis so they survive process restarts.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces seen keys.
const KeyPrefix = "seen:"

// Store is a Redis-backed seen registry.
type Store struct {
	client *goredis.Client
	ttl    time.Duration
}

// New wraps client. Keys expire after ttl; zero keeps them forever.
func New(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Connect opens a client for addr and verifies it with PING.
func Connect(ctx context.Context, addr, password string, db int, ttl time.Duration) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return New(client, ttl), nil
}

// Seen implements seen.Store.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, KeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return n > 0, nil
}

// MarkSeen implements seen.Store.
func (s *Store) MarkSeen(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, KeyPrefix+key, 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
