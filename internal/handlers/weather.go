// internal/handlers/weather.go
package handlers

import (
	"net/http"
	"strconv"

	"cropwise-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type WeatherHandler struct {
	weather *services.WeatherService
}

func NewWeatherHandler(weather *services.WeatherService) *WeatherHandler {
	return &WeatherHandler{weather: weather}
}

// Current returns current conditions for the given coordinates.
func (h *WeatherHandler) Current(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Valid lat query parameter is required",
		})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Valid lon query parameter is required",
		})
		return
	}

	report, err := h.weather.ByCoords(c.Request.Context(), lat, lon)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
