package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faresight/faresight-go/internal/utils"
)

// fixedClock returns a deterministic clock that advances one second per call.
func fixedClock() func() time.Time {
	current := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		want   string
	}{
		{
			name:   "strips scheme and host",
			rawURL: "https://api.example.com/api/fares/history/JFK/LAX?days=30",
			want:   "fare_cache:/api/fares/history/JFK/LAX?days=30",
		},
		{
			name:   "same path on different hosts collapses",
			rawURL: "http://other.example.org/api/fares/history/JFK/LAX?days=30",
			want:   "fare_cache:/api/fares/history/JFK/LAX?days=30",
		},
		{
			name:   "bare host becomes root",
			rawURL: "https://api.example.com",
			want:   "fare_cache:/",
		},
		{
			name:   "relative path kept as is",
			rawURL: "/api/fares/history/JFK/LAX",
			want:   "fare_cache:/api/fares/history/JFK/LAX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKey("fare_cache:", tt.rawURL))
		})
	}
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("fare_cache:", "fare_cache:/api/fares/history/JFK/LAX", "JFK"))
	assert.True(t, matchesPattern("fare_cache:", "fare_cache:/api/fares/history/JFK/LAX", "/api/fares"))
	assert.False(t, matchesPattern("fare_cache:", "fare_cache:/api/fares/history/JFK/LAX", "SFO"))
	assert.False(t, matchesPattern("fare_cache:", "fare_cache:/api/fares", "fare_cache"),
		"the namespace prefix itself is not matchable")
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("one"), 0))

	value, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("one"), value)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "a"))
	_, ok, _ = store.Get(ctx, "a")
	assert.False(t, ok)
	assert.NoError(t, store.Delete(ctx, "a"), "deleting an absent key is fine")
}

func TestMemoryStore_QuotaExceeded(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), 0))

	err := store.Set(ctx, "c", []byte("3"), 0)
	assert.ErrorIs(t, err, utils.ErrQuotaExceeded)

	// Overwriting an existing key never needs new capacity.
	assert.NoError(t, store.Set(ctx, "a", []byte("1x"), 0))

	n, err := store.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMemoryStore_OldestKey(t *testing.T) {
	store := NewMemoryStore(10)
	ctx := context.Background()

	_, found := store.OldestKey()
	assert.False(t, found)

	tick := fixedClock()
	store.now = tick
	require.NoError(t, store.Set(ctx, "first", []byte("1"), 0))
	require.NoError(t, store.Set(ctx, "second", []byte("2"), 0))
	require.NoError(t, store.Set(ctx, "third", []byte("3"), 0))

	oldest, found := store.OldestKey()
	require.True(t, found)
	assert.Equal(t, "first", oldest)
}
