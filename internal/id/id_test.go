package id

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := NewGenerator()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, id1, id2)
	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestNewIsSortableAndConcurrent(t *testing.T) {
	t.Parallel()

	const n = 200
	var (
		mu  sync.Mutex
		ids = make([]string, 0, n)
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := New()
			if err != nil {
				t.Errorf("New() error = %v", err)
				return
			}
			mu.Lock()
			ids = append(ids, v)
			mu.Unlock()
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{}, n)
	for _, v := range ids {
		_, dup := seen[v]
		require.False(t, dup, "duplicate id %s", v)
		seen[v] = struct{}{}
	}

	first, err := New()
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := New()
	require.NoError(t, err)
	sorted := []string{second, first}
	sort.Strings(sorted)
	assert.Equal(t, []string{first, second}, sorted)
}

func TestTimeOfRoundTrip(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Truncate(time.Millisecond)
	v, err := New()
	require.NoError(t, err)
	after := time.Now().UTC()

	got, err := TimeOf(v)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())
	assert.False(t, got.Before(before), "%v before %v", got, before)
	assert.False(t, got.After(after), "%v after %v", got, after)
}

func TestTimeOfMalformed(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"not-an-id",
		"01HQ3J8ZK8Q4V6Y1T9F5RZB1XW",
		goUUID.NewString(), // v4
	}
	for _, tc := range cases {
		_, err := TimeOf(tc)
		require.Error(t, err, tc)
		assert.True(t, errors.Is(err, ErrMalformedID), tc)
	}
}

func TestPartitionOf(t *testing.T) {
	t.Parallel()

	// 2024-03-01T12:00:00Z in unix milliseconds, packed into a v7 layout.
	ms := uint64(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli())
	var raw goUUID.UUID
	raw[0] = byte(ms >> 40)
	raw[1] = byte(ms >> 32)
	raw[2] = byte(ms >> 24)
	raw[3] = byte(ms >> 16)
	raw[4] = byte(ms >> 8)
	raw[5] = byte(ms)
	raw[6] = 0x70
	raw[8] = 0x80

	p, err := PartitionOf(raw.String())
	require.NoError(t, err)
	assert.Equal(t, "20240301", p)

	p, err = PartitionOf("bogus")
	require.ErrorIs(t, err, ErrMalformedID)
	assert.Equal(t, SentinelPartition, p)
	assert.Equal(t, SentinelPartition, Partition("bogus"))
}

func TestMustNew(t *testing.T) {
	t.Parallel()

	s := MustNew()
	v, err := goUUID.Parse(s)
	require.NoError(t, err)
	assert.Equal(t, goUUID.Version(7), v.Version())
	assert.NotEqual(t, s, MustNew())
}
