package handler

import (
	"context"
	"net/http"
	"strconv"

	"geocoding-etl/internal/models"

	"github.com/gin-gonic/gin"
)

// PointsHandler serves the persisted points
type PointsHandler struct {
	service PointService
}

// PointService interface for dependency injection
type PointService interface {
	ListPoints(context.Context, int) ([]models.PointView, error)
}

// NewPointsHandler creates a new points handler
func NewPointsHandler(svc PointService) *PointsHandler {
	return &PointsHandler{service: svc}
}

// ListPoints handles GET /points requests
func (h *PointsHandler) ListPoints(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit, expected a non-negative integer"})
			return
		}
		limit = n
	}

	points, err := h.service.ListPoints(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, points)
}
