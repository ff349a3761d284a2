package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/faresight/faresight-go/internal/models"
	"github.com/faresight/faresight-go/internal/services"
)

// ClassifyRequest is the body of a segmentation call. Interaction is optional;
// search-only classification is supported for first-touch requests.
type ClassifyRequest struct {
	Search      models.SearchBehavior       `json:"search" binding:"required"`
	Interaction *models.InteractionBehavior `json:"interaction,omitempty"`
}

// SegmentationHandler serves traveler segment classification.
type SegmentationHandler struct {
	engine *services.UserSegmentationEngine
}

// NewSegmentationHandler creates a segmentation handler.
func NewSegmentationHandler(engine *services.UserSegmentationEngine) *SegmentationHandler {
	return &SegmentationHandler{engine: engine}
}

// Classify scores a search (plus optional interaction signals) and returns
// the winning segment with its recommendations.
func (h *SegmentationHandler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	if req.Search.Adults < 0 || req.Search.Children < 0 || req.Search.Infants < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Passenger counts must be non-negative"})
		return
	}

	result := h.engine.ClassifyUser(req.Search, req.Interaction)
	c.JSON(http.StatusOK, result)
}
