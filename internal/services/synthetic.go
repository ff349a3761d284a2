package services

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/faresight/faresight-go/internal/models"
)

// SyntheticHistorySource generates a deterministic pseudo-random fare series
// for routes with no real aggregator data. The same route and seed always
// produce the same series, so prediction fixtures are reproducible.
type SyntheticHistorySource struct {
	seed int64
	now  func() time.Time
}

// NewSyntheticHistorySource creates a generator seeded per route.
func NewSyntheticHistorySource() *SyntheticHistorySource {
	return &SyntheticHistorySource{
		now: time.Now,
	}
}

// WithSeed overrides the base seed. The per-route hash is mixed in on top.
func (s *SyntheticHistorySource) WithSeed(seed int64) *SyntheticHistorySource {
	s.seed = seed
	return s
}

// WithClock overrides the time source for tests.
func (s *SyntheticHistorySource) WithClock(now func() time.Time) *SyntheticHistorySource {
	s.now = now
	return s
}

// FetchDailyHistory returns a trailing series of `days` daily fares ending
// yesterday, ordered oldest to newest. Base price is drawn uniformly from
// 450-650, with an annual sinusoidal seasonal term of amplitude 50 and
// uniform noise of +-50 on top.
func (s *SyntheticHistorySource) FetchDailyHistory(_ context.Context, origin, destination string, days int) ([]models.HistoricalFare, error) {
	if days <= 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(s.routeSeed(origin + "-" + destination)))
	basePrice := 450 + rng.Float64()*200

	today := truncateToDay(s.now())
	history := make([]models.HistoricalFare, 0, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i-days)
		seasonal := math.Sin(2*math.Pi*float64(date.YearDay())/365) * 50
		noise := (rng.Float64() - 0.5) * 100
		price := basePrice + seasonal + noise
		if price < 50 {
			price = 50
		}
		history = append(history, models.HistoricalFare{
			Date:         date,
			Price:        decimal.NewFromFloat(price).Round(2),
			Demand:       rng.Float64(),
			Availability: rng.Float64(),
		})
	}
	return history, nil
}

// routeSeed mixes the configured seed with an FNV hash of the route so that
// distinct routes get distinct but stable series.
func (s *SyntheticHistorySource) routeSeed(route string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(route))
	return s.seed ^ int64(h.Sum64())
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
