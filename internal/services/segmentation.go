package services

import (
	"github.com/sirupsen/logrus"

	"github.com/faresight/faresight-go/internal/models"
)

// Feature extraction thresholds.
const (
	shortTripMaxDays      = 3
	mediumTripMaxDays     = 7
	lastMinuteMaxDays     = 7
	advancePlannerMinDays = 30
	groupTravelMinSize    = 4
	engagementFullSeconds = 300
	clickPriceCeiling     = 2000.0
)

// UserSegmentationEngine classifies a search-and-interaction snapshot into
// one of four behavioral segments. Pure computation, no hidden state.
type UserSegmentationEngine struct {
	logger *logrus.Logger
}

// NewUserSegmentationEngine creates a segmentation engine.
func NewUserSegmentationEngine(logger *logrus.Logger) *UserSegmentationEngine {
	return &UserSegmentationEngine{logger: logger}
}

// behaviorFeatures is the fixed set of extracted signals, each in [0,1].
// A struct rather than an open-ended map so the feature space is closed at
// compile time.
type behaviorFeatures struct {
	weekdayDeparture float64
	weekendDeparture float64
	shortTrip        float64
	mediumTrip       float64
	longTrip         float64
	lastMinute       float64
	advancePlanner   float64
	soloTraveler     float64
	groupTravel      float64
	hasChildren      float64
	economyClass     float64
	premiumClass     float64
	flexibleDates    float64
	usedPriceFilter  float64
	sortedByPrice    float64
	sortedByDuration float64
	sortedByBest     float64
	highPriceClicks  float64
	engagement       float64
	mobileDevice     float64
	desktopDevice    float64
}

// ClassifyUser scores the four segment hypotheses for one behavior snapshot
// and returns the winner with its signals and tailored recommendations.
// Calling it twice with identical inputs yields identical results.
func (e *UserSegmentationEngine) ClassifyUser(search models.SearchBehavior, interaction *models.InteractionBehavior) models.SegmentationResult {
	features := extractFeatures(search, interaction)

	scores := models.SegmentScores{
		Business: scoreBusiness(features),
		Leisure:  scoreLeisure(features),
		Family:   scoreFamily(features),
		Budget:   scoreBudget(features),
	}

	segment, confidence := winningSegment(scores)

	result := models.SegmentationResult{
		Segment:         segment,
		Confidence:      confidence,
		Signals:         features.signals(),
		Scores:          scores,
		Recommendations: recommendationsFor(segment, features),
	}

	e.logger.WithFields(logrus.Fields{
		"route":      search.Route,
		"segment":    segment,
		"confidence": confidence,
	}).Debug("Classified searcher")

	return result
}

// QuickClassify runs a classification without interaction data and returns
// only the winning segment.
func (e *UserSegmentationEngine) QuickClassify(search models.SearchBehavior) models.Segment {
	return e.ClassifyUser(search, nil).Segment
}

// extractFeatures maps the behavior snapshot onto the fixed feature set.
func extractFeatures(search models.SearchBehavior, interaction *models.InteractionBehavior) behaviorFeatures {
	var f behaviorFeatures

	if search.DepartureDay == models.DepartureWeekend {
		f.weekendDeparture = 1
	} else {
		f.weekdayDeparture = 1
	}

	if search.TripLength != nil {
		switch length := *search.TripLength; {
		case length <= shortTripMaxDays:
			f.shortTrip = 1
		case length <= mediumTripMaxDays:
			f.mediumTrip = 1
		default:
			f.longTrip = 1
		}
	}

	if search.AdvanceBooking >= 0 && search.AdvanceBooking < lastMinuteMaxDays {
		f.lastMinute = 1
	}
	if search.AdvanceBooking > advancePlannerMinDays {
		f.advancePlanner = 1
	}

	partySize := search.Adults + search.Children + search.Infants
	if search.Adults == 1 && search.Children == 0 && search.Infants == 0 {
		f.soloTraveler = 1
	}
	if partySize >= groupTravelMinSize {
		f.groupTravel = 1
	}
	if search.Children > 0 || search.Infants > 0 {
		f.hasChildren = 1
	}

	if search.CabinClass == models.CabinEconomy {
		f.economyClass = 1
	} else if search.CabinClass != "" {
		f.premiumClass = 1
	}

	if search.FlexibleDates {
		f.flexibleDates = 1
	}

	if interaction != nil {
		if interaction.UsedPriceFilter {
			f.usedPriceFilter = 1
		}
		switch interaction.SortPreference {
		case models.SortByPrice:
			f.sortedByPrice = 1
		case models.SortByDuration:
			f.sortedByDuration = 1
		case models.SortByBest:
			f.sortedByBest = 1
		}
		if len(interaction.ClickedFlights) > 0 {
			total := 0.0
			for _, click := range interaction.ClickedFlights {
				total += click.Price
			}
			f.highPriceClicks = clamp01(total / float64(len(interaction.ClickedFlights)) / clickPriceCeiling)
		}
		f.engagement = clamp01(interaction.TimeSpentSeconds / engagementFullSeconds)
		switch interaction.DeviceType {
		case models.DeviceMobile:
			f.mobileDevice = 1
		case models.DeviceDesktop:
			f.desktopDevice = 1
		}
	}

	return f
}

// Canonical segment weights. Positive contributions minus negative ones,
// clamped to [0,1]. These values are the reference for the test fixtures.

func scoreBusiness(f behaviorFeatures) float64 {
	score := 0.15*f.weekdayDeparture +
		0.25*f.shortTrip +
		0.20*f.lastMinute +
		0.15*f.soloTraveler +
		0.20*f.premiumClass +
		0.10*f.sortedByDuration +
		0.05*f.desktopDevice +
		0.10*f.highPriceClicks
	score -= 0.20*f.hasChildren +
		0.10*f.flexibleDates +
		0.15*f.sortedByPrice
	return clamp01(score)
}

func scoreLeisure(f behaviorFeatures) float64 {
	score := 0.20*f.weekendDeparture +
		0.20*f.mediumTrip +
		0.15*f.longTrip +
		0.20*f.advancePlanner +
		0.15*f.flexibleDates +
		0.10*f.economyClass +
		0.10*f.engagement +
		0.10*f.sortedByBest
	score -= 0.15*f.lastMinute +
		0.10*f.premiumClass
	return clamp01(score)
}

func scoreFamily(f behaviorFeatures) float64 {
	score := 0.40*f.hasChildren +
		0.20*f.groupTravel +
		0.10*f.longTrip +
		0.10*f.mediumTrip +
		0.10*f.weekendDeparture +
		0.10*f.economyClass +
		0.10*f.advancePlanner
	score -= 0.25*f.soloTraveler +
		0.05*f.lastMinute
	return clamp01(score)
}

func scoreBudget(f behaviorFeatures) float64 {
	score := 0.20*f.economyClass +
		0.25*f.sortedByPrice +
		0.20*f.usedPriceFilter +
		0.15*f.flexibleDates +
		0.10*f.advancePlanner +
		0.05*f.longTrip +
		0.05*f.mobileDevice
	score -= 0.15*f.highPriceClicks +
		0.25*f.premiumClass
	return clamp01(score)
}

// winningSegment picks the highest score. The order below is the fixed
// tie-break priority: on exact ties the earlier segment wins.
func winningSegment(scores models.SegmentScores) (models.Segment, float64) {
	ranked := []struct {
		segment models.Segment
		score   float64
	}{
		{models.SegmentBusiness, scores.Business},
		{models.SegmentLeisure, scores.Leisure},
		{models.SegmentFamily, scores.Family},
		{models.SegmentBudget, scores.Budget},
	}

	winner := ranked[0]
	for _, candidate := range ranked[1:] {
		if candidate.score > winner.score {
			winner = candidate
		}
	}
	return winner.segment, winner.score
}

// recommendationsFor is the per-segment upsell lookup with the two
// conditional fare-class branches.
func recommendationsFor(segment models.Segment, f behaviorFeatures) models.SegmentRecommendations {
	switch segment {
	case models.SegmentBusiness:
		fareClass := "standard"
		if f.premiumClass > 0.5 {
			fareClass = "flex"
		}
		return models.SegmentRecommendations{
			FareClass:  fareClass,
			AddOns:     []string{"priority_boarding", "lounge_access", "extra_legroom"},
			BundleType: "business_flex",
		}
	case models.SegmentLeisure:
		return models.SegmentRecommendations{
			FareClass:  "standard",
			AddOns:     []string{"seat_selection", "checked_bag"},
			BundleType: "leisure_saver",
		}
	case models.SegmentFamily:
		return models.SegmentRecommendations{
			FareClass:  "standard",
			AddOns:     []string{"family_seating", "checked_bag", "priority_boarding"},
			BundleType: "family_bundle",
		}
	default:
		fareClass := "standard"
		if f.sortedByPrice > 0.5 {
			fareClass = "basic"
		}
		return models.SegmentRecommendations{
			FareClass:  fareClass,
			AddOns:     []string{"cabin_bag_only"},
			BundleType: "essentials",
		}
	}
}

// signals exposes the extracted features as the named score map carried on
// the result.
func (f behaviorFeatures) signals() map[string]float64 {
	return map[string]float64{
		"weekday_departure":  f.weekdayDeparture,
		"weekend_departure":  f.weekendDeparture,
		"short_trip":         f.shortTrip,
		"medium_trip":        f.mediumTrip,
		"long_trip":          f.longTrip,
		"last_minute":        f.lastMinute,
		"advance_planner":    f.advancePlanner,
		"solo_traveler":      f.soloTraveler,
		"group_travel":       f.groupTravel,
		"has_children":       f.hasChildren,
		"economy_class":      f.economyClass,
		"premium_class":      f.premiumClass,
		"flexible_dates":     f.flexibleDates,
		"used_price_filter":  f.usedPriceFilter,
		"sorted_by_price":    f.sortedByPrice,
		"sorted_by_duration": f.sortedByDuration,
		"sorted_by_best":     f.sortedByBest,
		"high_price_clicks":  f.highPriceClicks,
		"engagement":         f.engagement,
		"mobile_device":      f.mobileDevice,
		"desktop_device":     f.desktopDevice,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
