package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkSeen(t *testing.T) {
	s := New(10, 0)
	ctx := context.Background()

	seen, err := s.Seen(ctx, "MY-ApplicationDate-Day-2024-03-01-1")
	require.NoError(t, err)
	assert.False(t, seen)

	first, err := s.MarkSeen(ctx, "MY-ApplicationDate-Day-2024-03-01-1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = s.MarkSeen(ctx, "MY-ApplicationDate-Day-2024-03-01-1")
	require.NoError(t, err)
	assert.False(t, first)

	seen, err = s.Seen(ctx, "MY-ApplicationDate-Day-2024-03-01-1")
	require.NoError(t, err)
	assert.True(t, seen)

	first, err = s.MarkSeen(ctx, "MY-PublicationDate-Day-2024-03-01-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 2, s.Len())
}

func TestMarkSeenEvicts(t *testing.T) {
	s := New(2, 0)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		_, err := s.MarkSeen(ctx, k)
		require.NoError(t, err)
	}
	first, err := s.MarkSeen(ctx, "a")
	require.NoError(t, err)
	assert.True(t, first, "evicted key should be new again")
}

func TestMarkSeenExpires(t *testing.T) {
	s := New(10, 20*time.Millisecond)
	ctx := context.Background()
	_, err := s.MarkSeen(ctx, "k")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		first, _ := s.MarkSeen(ctx, "k")
		return first
	}, time.Second, 10*time.Millisecond)
}

func TestMarkSeenConcurrent(t *testing.T) {
	s := New(0, 0)
	var firsts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if first, _ := s.MarkSeen(context.Background(), "concurrent"); first {
				firsts.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), firsts.Load())
}
