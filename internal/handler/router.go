package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires every route. reverse may be nil when no geocoder is configured.
func NewRouter(points *PointsHandler, reverse *ReverseGeocodeHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	r.GET("/points", points.ListPoints)
	if reverse != nil {
		r.GET("/reverse", reverse.ReverseGeocode)
	}

	return r
}
