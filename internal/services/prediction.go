package services

import (
	"context"
	"sort"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/models"
)

// Factor weights for combining the per-day multipliers into a price.
const (
	seasonalWeight      = 0.4
	demandWeight        = 0.3
	bookingWindowWeight = 0.3
)

// Trend thresholds: recent window vs earliest window, relative change.
const trendThreshold = 0.05

// HistorySource supplies the trailing daily fare series for a route. The
// prediction engine performs exactly one fetch per request.
type HistorySource interface {
	FetchDailyHistory(ctx context.Context, origin, destination string, days int) ([]models.HistoricalFare, error)
}

// PricePredictionEngine turns a route query plus historical fares into a
// day-by-day forecast with confidence and booking guidance.
type PricePredictionEngine struct {
	cfg      config.PredictionConfig
	source   HistorySource
	fallback HistorySource
	logger   *logrus.Logger
	now      func() time.Time
}

// NewPricePredictionEngine creates an engine over the given history source.
// A nil source means every request uses the synthetic fallback series.
func NewPricePredictionEngine(cfg config.PredictionConfig, source HistorySource, logger *logrus.Logger) *PricePredictionEngine {
	return &PricePredictionEngine{
		cfg:      cfg,
		source:   source,
		fallback: NewSyntheticHistorySource(),
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source for tests.
func (e *PricePredictionEngine) WithClock(now func() time.Time) *PricePredictionEngine {
	e.now = now
	if s, ok := e.fallback.(*SyntheticHistorySource); ok {
		s.WithClock(now)
	}
	return e
}

// WithFallback overrides the fallback history source for tests.
func (e *PricePredictionEngine) WithFallback(source HistorySource) *PricePredictionEngine {
	e.fallback = source
	return e
}

// PredictPrices forecasts one price per consecutive calendar day starting
// today, daysAhead days in total. The single history fetch is the only
// suspension point; the day loop itself is pure. Data-source failures never
// surface as errors: the engine degrades to the synthetic series, and from
// there to the configured fallback base price. The only returned error is
// context cancellation during the fetch.
func (e *PricePredictionEngine) PredictPrices(ctx context.Context, params models.PredictionParams, daysAhead int) ([]models.PricePrediction, error) {
	if daysAhead <= 0 {
		daysAhead = e.cfg.DaysAhead
	}

	history := e.fetchHistory(ctx, params)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	basePrice := e.basePrice(history)
	confidence := confidenceForSeries(len(history))
	seriesTrend := e.seriesTrend(history)

	today := truncateToDay(e.now())
	departure := truncateToDay(params.DepartureDate)

	predictions := make([]models.PricePrediction, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		predictions = append(predictions, e.predictDay(date, departure, basePrice, confidence, seriesTrend))
	}

	e.logger.WithFields(logrus.Fields{
		"route":      params.Route(),
		"days_ahead": daysAhead,
		"history":    len(history),
		"confidence": confidence,
		"trend":      seriesTrend,
	}).Info("Generated price forecast")

	return predictions, nil
}

// fetchHistory obtains the trailing series, falling back to the synthetic
// generator when the primary source is missing or failing.
func (e *PricePredictionEngine) fetchHistory(ctx context.Context, params models.PredictionParams) []models.HistoricalFare {
	if e.source != nil {
		history, err := e.source.FetchDailyHistory(ctx, params.Origin, params.Destination, e.cfg.HistoryDays)
		if err == nil && len(history) > 0 {
			return history
		}
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"route": params.Route(),
				"error": err.Error(),
			}).Warn("Fare history fetch failed, using synthetic series")
		}
	}

	history, err := e.fallback.FetchDailyHistory(ctx, params.Origin, params.Destination, e.cfg.HistoryDays)
	if err != nil {
		// Synthetic generation cannot fail in practice; degrade to the
		// fixed fallback base price by returning no history at all.
		e.logger.WithError(err).Warn("Synthetic fare series unavailable")
		return nil
	}
	return history
}

// predictDay computes one forecasted day. Pure arithmetic over the already
// fetched series statistics.
func (e *PricePredictionEngine) predictDay(date, departure time.Time, basePrice, confidence float64, seriesTrend models.Trend) models.PricePrediction {
	daysUntilDeparture := daysBetween(date, departure)

	seasonal, seasonalTags := seasonalFactor(date)
	demand := demandFactor(daysUntilDeparture)
	bookingWindow := bookingWindowFactor(daysUntilDeparture)

	price := basePrice * (seasonalWeight*seasonal + demandWeight*demand + bookingWindowWeight*bookingWindow)

	spread := (1 - confidence) * 0.3
	prediction := models.PricePrediction{
		Date:           date,
		PredictedPrice: decimal.NewFromFloat(price).Round(0),
		Confidence:     confidence,
		PriceRange: models.PriceRange{
			Min: decimal.NewFromFloat(price * (1 - spread)).Round(0),
			Max: decimal.NewFromFloat(price * (1 + spread)).Round(0),
		},
		Trend:          seriesTrend,
		Recommendation: recommendationFor(price, basePrice, confidence, seriesTrend),
		Factors:        collectFactors(seasonal, demand, bookingWindow, seasonalTags),
	}
	return prediction
}

// basePrice is the median of the historical prices; the configured fallback
// when the series is empty.
func (e *PricePredictionEngine) basePrice(history []models.HistoricalFare) float64 {
	if len(history) == 0 {
		return e.cfg.FallbackBasePrice
	}
	prices := make([]float64, len(history))
	for i, point := range history {
		prices[i] = point.Price.InexactFloat64()
	}
	sort.Float64s(prices)
	return prices[len(prices)/2]
}

// seriesTrend compares the mean of the most recent window against the mean
// of the earliest window. Window size is 7 points, or the whole series when
// shorter.
func (e *PricePredictionEngine) seriesTrend(history []models.HistoricalFare) models.Trend {
	if len(history) == 0 {
		return models.TrendStable
	}

	prices := make([]float64, len(history))
	for i, point := range history {
		prices[i] = point.Price.InexactFloat64()
	}

	var earliest, recent float64
	if len(prices) >= 7 {
		sma := trend.NewSmaWithPeriod[float64](7)
		windows := helper.ChanToSlice(sma.Compute(helper.SliceToChan(prices)))
		earliest = windows[0]
		recent = windows[len(windows)-1]
	} else {
		earliest = mean(prices)
		recent = earliest
	}

	if earliest == 0 {
		return models.TrendStable
	}
	change := (recent - earliest) / earliest
	switch {
	case change > trendThreshold:
		return models.TrendIncreasing
	case change < -trendThreshold:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// seasonalFactor is the product of the summer, weekend and holiday
// multipliers for a calendar day, plus the tags each triggered component
// contributes.
func seasonalFactor(date time.Time) (float64, []string) {
	factor := 1.0
	var tags []string

	if date.Month() >= time.June && date.Month() <= time.August {
		factor *= 1.3
	}
	if date.Weekday() == time.Friday || date.Weekday() == time.Saturday {
		factor *= 1.15
		tags = append(tags, "Weekend departure")
	}
	if isHolidayPeriod(date) {
		factor *= 1.4
		tags = append(tags, "Holiday period")
	}
	return factor, tags
}

// isHolidayPeriod applies the fixed holiday calendar: late December, early
// January, the whole of July and August, and mid April.
func isHolidayPeriod(date time.Time) bool {
	month, day := date.Month(), date.Day()
	switch {
	case month == time.December && day >= 20:
		return true
	case month == time.January && day <= 5:
		return true
	case month == time.July || month == time.August:
		return true
	case month == time.April && day >= 10 && day <= 20:
		return true
	}
	return false
}

// demandFactor scales with how close the candidate day is to departure.
func demandFactor(daysUntilDeparture int) float64 {
	switch {
	case daysUntilDeparture < 0:
		return 1.0
	case daysUntilDeparture < 7:
		return 1.5
	case daysUntilDeparture > 90:
		return 1.2
	default:
		return 0.9 + float64(daysUntilDeparture)/100
	}
}

// bookingWindowFactor is the staircase premium on days until departure.
func bookingWindowFactor(daysUntilDeparture int) float64 {
	switch {
	case daysUntilDeparture < 0:
		return 1.0
	case daysUntilDeparture <= 3:
		return 1.8
	case daysUntilDeparture <= 7:
		return 1.5
	case daysUntilDeparture <= 14:
		return 1.3
	case daysUntilDeparture <= 21:
		return 1.1
	case daysUntilDeparture <= 60:
		return 1.0
	case daysUntilDeparture <= 90:
		return 0.95
	default:
		return 0.9
	}
}

// confidenceForSeries is a step function of data volume only.
func confidenceForSeries(points int) float64 {
	switch {
	case points < 7:
		return 0.5
	case points < 30:
		return 0.7
	default:
		return 0.85
	}
}

// recommendationFor applies the buy/wait/watch rules against the base price
// and series trend.
func recommendationFor(price, basePrice, confidence float64, seriesTrend models.Trend) models.Recommendation {
	if confidence < 0.65 {
		return models.RecommendationWatch
	}
	change := (price - basePrice) / basePrice
	if change < -0.10 && seriesTrend == models.TrendIncreasing {
		return models.RecommendationBuyNow
	}
	if change > 0.15 && seriesTrend == models.TrendDecreasing {
		return models.RecommendationWait
	}
	return models.RecommendationWatch
}

// collectFactors assembles the human-readable pricing tags for a day. Always
// non-empty.
func collectFactors(seasonal, demand, bookingWindow float64, seasonalTags []string) []string {
	var factors []string
	if seasonal > 1.2 {
		factors = append(factors, "High season")
	} else if seasonal < 0.9 {
		factors = append(factors, "Low season")
	}
	factors = append(factors, seasonalTags...)
	if demand > 1.3 {
		factors = append(factors, "High demand route")
	}
	if bookingWindow > 1.4 {
		factors = append(factors, "Last minute premium")
	}
	if len(factors) == 0 {
		factors = append(factors, "Standard pricing period")
	}
	return factors
}

// daysBetween counts whole calendar days from a to b; negative when b is
// before a. Normalized through UTC so DST transitions cannot skew the count.
func daysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
