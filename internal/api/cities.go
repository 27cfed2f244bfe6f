package api

import (
	"net/http"

	"rentals/server/config"
	"rentals/server/internal/apperrors"

	"github.com/gin-gonic/gin"
)

type cityResponse struct {
	Name      string  `json:"name"`
	Slug      string  `json:"slug"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func toCityResponse(c config.City) cityResponse {
	return cityResponse{
		Name:      c.Name,
		Slug:      c.Slug,
		Latitude:  c.Center.Lat(),
		Longitude: c.Center.Lon(),
	}
}

// ListCities returns the markets search can score proximity against
func (h *Handler) ListCities(c *gin.Context) {
	cities := make([]cityResponse, 0, len(config.SupportedCities))
	for _, city := range config.SupportedCities {
		cities = append(cities, toCityResponse(city))
	}
	c.JSON(http.StatusOK, cities)
}

// GetCity returns a single market by name or slug
func (h *Handler) GetCity(c *gin.Context) {
	city := config.GetCityByName(c.Param("name"))
	if city == nil {
		h.fail(c, apperrors.NotFound("city not found"))
		return
	}
	c.JSON(http.StatusOK, toCityResponse(*city))
}
