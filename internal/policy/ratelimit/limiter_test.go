package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitSpacesRequests(t *testing.T) {
	// 600 rpm is one token every 100ms.
	l := New(Config{RequestsPerMinute: 600})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://iponlineext.myipo.gov.my/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://iponlineext.myipo.gov.my/b"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterPerHost(t *testing.T) {
	l := New(Config{RequestsPerMinute: 1})
	ctx := context.Background()
	require.NoError(t, l.Wait(ctx, "https://a.example/"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://b.example/"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterContextCanceled(t *testing.T) {
	l := New(Config{RequestsPerMinute: 1})
	require.NoError(t, l.Wait(context.Background(), "https://a.example/"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "https://a.example/"))
}

func TestLimiterDisabled(t *testing.T) {
	l := New(Config{RequestsPerMinute: -1})
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(context.Background(), "::bad"))
	}
}

func TestDefaults(t *testing.T) {
	l := New(Config{})
	assert.InDelta(t, 2.0, float64(l.limit), 0.0001)
	assert.Equal(t, 1, l.burst)
}
