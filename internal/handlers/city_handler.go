package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
)

// CityHandler exposes city management over HTTP
type CityHandler struct {
	cityRepo *database.CityRepository
}

// NewCityHandler creates a new CityHandler
func NewCityHandler(cityRepo *database.CityRepository) *CityHandler {
	return &CityHandler{cityRepo: cityRepo}
}

// CreateCity adds a city
func (h *CityHandler) CreateCity(c *gin.Context) {
	var req models.CreateCityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.cityRepo.GetByName(req.Name)
	if err != nil {
		respondError(c, apperrors.Internal("failed to check city", err))
		return
	}
	if existing != nil {
		respondError(c, apperrors.Conflict("city already exists"))
		return
	}

	city := &models.City{Name: req.Name}
	if err := h.cityRepo.Create(city); err != nil {
		respondError(c, apperrors.Internal("failed to create city", err))
		return
	}

	c.JSON(http.StatusCreated, city)
}

// ListCities retrieves all cities
func (h *CityHandler) ListCities(c *gin.Context) {
	cities, err := h.cityRepo.GetAll()
	if err != nil {
		respondError(c, apperrors.Internal("failed to list cities", err))
		return
	}

	c.JSON(http.StatusOK, cities)
}

// GetCity retrieves a city by ID
func (h *CityHandler) GetCity(c *gin.Context) {
	city, err := h.cityRepo.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Internal("failed to get city", err))
		return
	}
	if city == nil {
		respondError(c, apperrors.NotFound("city not found"))
		return
	}

	c.JSON(http.StatusOK, city)
}

// DeleteCity removes a city
func (h *CityHandler) DeleteCity(c *gin.Context) {
	city, err := h.cityRepo.GetByID(c.Param("id"))
	if err != nil {
		respondError(c, apperrors.Internal("failed to get city", err))
		return
	}
	if city == nil {
		respondError(c, apperrors.NotFound("city not found"))
		return
	}

	if err := h.cityRepo.Delete(city.ID); err != nil {
		respondError(c, apperrors.Internal("failed to delete city", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "city deleted"})
}
