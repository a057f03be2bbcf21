package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Connect(context.Background(), mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	first, err := s.MarkSeen(ctx, "MY-CaseNumber-Value-2024-03-01-1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = s.MarkSeen(ctx, "MY-CaseNumber-Value-2024-03-01-1")
	require.NoError(t, err)
	assert.False(t, first)

	seen, err := s.Seen(ctx, "MY-CaseNumber-Value-2024-03-01-1")
	require.NoError(t, err)
	assert.True(t, seen)
	seen, err = s.Seen(ctx, "MY-CaseNumber-Value-2024-03-02-1")
	require.NoError(t, err)
	assert.False(t, seen)

	assert.True(t, mr.Exists(KeyPrefix+"MY-CaseNumber-Value-2024-03-01-1"))
	assert.Equal(t, time.Hour, mr.TTL(KeyPrefix+"MY-CaseNumber-Value-2024-03-01-1"))
}

func TestMarkSeenAfterExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	_, err := s.MarkSeen(ctx, "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	first, err := s.MarkSeen(ctx, "k")
	require.NoError(t, err)
	assert.True(t, first)
}

func TestMarkSeenServerDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}), 0)
	t.Cleanup(func() { _ = s.Close() })
	mr.Close()

	_, err := s.MarkSeen(context.Background(), "k")
	assert.Error(t, err)
	_, err = s.Seen(context.Background(), "k")
	assert.Error(t, err)
}

func TestConnectFails(t *testing.T) {
	_, err := Connect(context.Background(), "127.0.0.1:1", "", 0, 0)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1}), 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(context.Background()))
	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}
