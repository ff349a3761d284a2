package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/faresight/faresight-go/internal/models"
	"github.com/faresight/faresight-go/internal/services"
)

// PredictionHandler serves day-by-day fare forecasts.
type PredictionHandler struct {
	engine           *services.PricePredictionEngine
	defaultDaysAhead int
}

// NewPredictionHandler creates a prediction handler.
func NewPredictionHandler(engine *services.PricePredictionEngine, defaultDaysAhead int) *PredictionHandler {
	if defaultDaysAhead <= 0 {
		defaultDaysAhead = 30
	}
	return &PredictionHandler{
		engine:           engine,
		defaultDaysAhead: defaultDaysAhead,
	}
}

// GetPredictions returns the forecast for an itinerary.
// Query: origin, destination, departure_date (YYYY-MM-DD), days_ahead.
func (h *PredictionHandler) GetPredictions(c *gin.Context) {
	origin := strings.ToUpper(strings.TrimSpace(c.Query("origin")))
	destination := strings.ToUpper(strings.TrimSpace(c.Query("destination")))
	if origin == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin parameter is required"})
		return
	}
	if destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "destination parameter is required"})
		return
	}

	departureStr := c.Query("departure_date")
	if departureStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "departure_date parameter is required"})
		return
	}
	departure, err := time.Parse("2006-01-02", departureStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid departure_date parameter, expected YYYY-MM-DD"})
		return
	}

	daysAhead, err := strconv.Atoi(c.DefaultQuery("days_ahead", strconv.Itoa(h.defaultDaysAhead)))
	if err != nil || daysAhead < 1 || daysAhead > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid days_ahead parameter"})
		return
	}

	params := models.PredictionParams{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departure,
	}
	predictions, err := h.engine.PredictPrices(c.Request.Context(), params, daysAhead)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate price predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"route":          params.Route(),
		"departure_date": departure.Format("2006-01-02"),
		"days_ahead":     daysAhead,
		"predictions":    predictions,
	})
}
