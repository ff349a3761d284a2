package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticHistory_Deterministic(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	first := NewSyntheticHistorySource().WithClock(clock)
	second := NewSyntheticHistorySource().WithClock(clock)

	a, err := first.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	b, err := second.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)

	assert.Equal(t, a, b, "same route and clock must reproduce the series")
}

func TestSyntheticHistory_RoutesDiffer(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	source := NewSyntheticHistorySource().WithClock(clock)

	a, err := source.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	b, err := source.FetchDailyHistory(context.Background(), "SFO", "NRT", 30)
	require.NoError(t, err)

	assert.NotEqual(t, a[0].Price, b[0].Price)
}

func TestSyntheticHistory_Shape(t *testing.T) {
	source := NewSyntheticHistorySource().WithClock(func() time.Time { return fixedNow })

	history, err := source.FetchDailyHistory(context.Background(), "JFK", "LAX", 30)
	require.NoError(t, err)
	require.Len(t, history, 30)

	yesterday := time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, yesterday, history[len(history)-1].Date, "series ends yesterday")

	floor := decimal.NewFromInt(50)
	for i, point := range history {
		assert.True(t, point.Price.GreaterThanOrEqual(floor), "price floor at 50")
		if i > 0 {
			assert.True(t, point.Date.After(history[i-1].Date), "oldest to newest")
		}
	}

	empty, err := source.FetchDailyHistory(context.Background(), "JFK", "LAX", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSyntheticHistory_SeedChangesSeries(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	base := NewSyntheticHistorySource().WithClock(clock)
	seeded := NewSyntheticHistorySource().WithSeed(42).WithClock(clock)

	a, err := base.FetchDailyHistory(context.Background(), "JFK", "LAX", 10)
	require.NoError(t, err)
	b, err := seeded.FetchDailyHistory(context.Background(), "JFK", "LAX", 10)
	require.NoError(t, err)

	assert.NotEqual(t, a[0].Price, b[0].Price)
}
