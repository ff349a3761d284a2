package models

import "time"

// Segment is the behavioral classification of a searcher.
type Segment string

const (
	SegmentBusiness Segment = "business"
	SegmentLeisure  Segment = "leisure"
	SegmentFamily   Segment = "family"
	SegmentBudget   Segment = "budget"
)

// CabinClass mirrors the cabin selected in the search form.
type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

// DepartureDay distinguishes weekday from weekend departures.
type DepartureDay string

const (
	DepartureWeekday DepartureDay = "weekday"
	DepartureWeekend DepartureDay = "weekend"
)

// SortPreference is the result ordering the user chose, if any.
type SortPreference string

const (
	SortByPrice    SortPreference = "price"
	SortByDuration SortPreference = "duration"
	SortByBest     SortPreference = "best"
)

// DeviceType identifies the client device class.
type DeviceType string

const (
	DeviceMobile  DeviceType = "mobile"
	DeviceDesktop DeviceType = "desktop"
)

// SearchBehavior is a snapshot of a single search submission. Immutable input
// to the segmentation engine.
type SearchBehavior struct {
	Route          string       `json:"route"`
	DepartureDay   DepartureDay `json:"departure_day"`
	TripLength     *int         `json:"trip_length,omitempty"`  // days; nil for one-way
	AdvanceBooking int          `json:"advance_booking"`        // days before departure, may be negative
	Adults         int          `json:"adults"`
	Children       int          `json:"children"`
	Infants        int          `json:"infants"`
	CabinClass     CabinClass   `json:"cabin_class"`
	FlexibleDates  bool         `json:"flexible_dates"`
	SearchTime     time.Time    `json:"search_time"`
}

// ClickedFlight is one result the user opened during the session.
type ClickedFlight struct {
	Price     float64 `json:"price"`
	FareClass string  `json:"fare_class"`
	Airline   string  `json:"airline"`
}

// InteractionBehavior captures optional in-session interaction signals.
type InteractionBehavior struct {
	UsedPriceFilter   bool            `json:"used_price_filter"`
	UsedStopsFilter   bool            `json:"used_stops_filter"`
	UsedAirlineFilter bool            `json:"used_airline_filter"`
	SortPreference    SortPreference  `json:"sort_preference"`
	ClickedFlights    []ClickedFlight `json:"clicked_flights"`
	TimeSpentSeconds  float64         `json:"time_spent_seconds"`
	DeviceType        DeviceType      `json:"device_type"`
}

// SegmentScores holds the clamped [0,1] score for each of the four fixed
// segment hypotheses.
type SegmentScores struct {
	Business float64 `json:"business"`
	Leisure  float64 `json:"leisure"`
	Family   float64 `json:"family"`
	Budget   float64 `json:"budget"`
}

// SegmentRecommendations is the upsell bundle tailored to the winning segment.
type SegmentRecommendations struct {
	FareClass  string   `json:"fare_class"`
	AddOns     []string `json:"add_ons"`
	BundleType string   `json:"bundle_type"`
}

// SegmentationResult is the outcome of one classification call. Stateless,
// never persisted.
type SegmentationResult struct {
	Segment         Segment                `json:"segment"`
	Confidence      float64                `json:"confidence"` // winning score, 0..1
	Signals         map[string]float64     `json:"signals"`
	Scores          SegmentScores          `json:"scores"`
	Recommendations SegmentRecommendations `json:"recommendations"`
}
