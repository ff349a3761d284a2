package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend describes the direction of recent fare movement for a route.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// Recommendation is the booking guidance attached to a prediction.
type Recommendation string

const (
	RecommendationBuyNow Recommendation = "buy_now"
	RecommendationWait   Recommendation = "wait"
	RecommendationWatch  Recommendation = "watch"
)

// HistoricalFare represents one observed (or synthesized) day of fare data
// for a route. Entries are ordered oldest to newest and are read-only once
// produced.
type HistoricalFare struct {
	Date         time.Time       `json:"date"`
	Price        decimal.Decimal `json:"price"`
	Demand       float64         `json:"demand"`       // 0..1
	Availability float64         `json:"availability"` // 0..1
}

// PriceRange is the confidence interval around a predicted fare.
type PriceRange struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// PricePrediction is one forecasted day of fares for a route. Instances are
// created per request and never mutated after construction.
type PricePrediction struct {
	Date           time.Time       `json:"date"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
	Confidence     float64         `json:"confidence"` // 0..1
	PriceRange     PriceRange      `json:"price_range"`
	Trend          Trend           `json:"trend"`
	Recommendation Recommendation  `json:"recommendation"`
	Factors        []string        `json:"factors"`
}

// PredictionParams identifies the itinerary a forecast is requested for.
type PredictionParams struct {
	Origin        string     `json:"origin" form:"origin"`
	Destination   string     `json:"destination" form:"destination"`
	DepartureDate time.Time  `json:"departure_date" form:"departure_date" time_format:"2006-01-02"`
	ReturnDate    *time.Time `json:"return_date,omitempty" form:"return_date" time_format:"2006-01-02"`
	Passengers    int        `json:"passengers" form:"passengers"`
	CabinClass    CabinClass `json:"cabin_class" form:"cabin_class"`
}

// Route returns the canonical "ORIGIN-DESTINATION" pair for cache keys and
// synthetic seeding.
func (p PredictionParams) Route() string {
	return p.Origin + "-" + p.Destination
}
