package fareapi

import (
	"time"

	"github.com/shopspring/decimal"
)

// HealthResponse is the aggregator's health probe payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// FareDay is one day of observed fares for a route as reported by the
// aggregator.
type FareDay struct {
	Date         string          `json:"date"` // YYYY-MM-DD
	Price        decimal.Decimal `json:"price"`
	Demand       float64         `json:"demand"`
	Availability float64         `json:"availability"`
}

// FareHistoryResponse is the aggregator's trailing-history payload, ordered
// oldest to newest.
type FareHistoryResponse struct {
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Days        int       `json:"days"`
	Fares       []FareDay `json:"fares"`
	Timestamp   time.Time `json:"timestamp"`
}

// ErrorResponse is the aggregator's error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
