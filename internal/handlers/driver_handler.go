package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/services"
)

// DriverHandler exposes driver fleet management over HTTP
type DriverHandler struct {
	driverRepo       *database.DriverRepository
	availabilityRepo *database.AvailabilityRepository
	locationRepo     *database.LocationRepository
	dispatch         *services.DispatchService
	logger           *logrus.Logger
}

// NewDriverHandler creates a new DriverHandler
func NewDriverHandler(
	driverRepo *database.DriverRepository,
	availabilityRepo *database.AvailabilityRepository,
	locationRepo *database.LocationRepository,
	dispatch *services.DispatchService,
	logger *logrus.Logger,
) *DriverHandler {
	return &DriverHandler{
		driverRepo:       driverRepo,
		availabilityRepo: availabilityRepo,
		locationRepo:     locationRepo,
		dispatch:         dispatch,
		logger:           logger,
	}
}

// CreateDriver registers a driver for the caller's company
func (h *DriverHandler) CreateDriver(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	var req models.CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	driver := &models.Driver{
		CompanyID:   companyID,
		CityID:      req.CityID,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		VehicleInfo: req.VehicleInfo,
		Status:      models.DriverStatusOffline,
	}
	if err := h.driverRepo.Create(driver); err != nil {
		respondError(c, apperrors.Internal("failed to create driver", err))
		return
	}

	c.JSON(http.StatusCreated, driver)
}

// GetDriver retrieves a driver by ID
func (h *DriverHandler) GetDriver(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, driver)
}

// ListDrivers retrieves all drivers for the caller's company
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	drivers, err := h.driverRepo.GetByCompanyID(companyID)
	if err != nil {
		respondError(c, apperrors.Internal("failed to list drivers", err))
		return
	}

	c.JSON(http.StatusOK, drivers)
}

// UpdateDriver updates driver contact and vehicle details
func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.CityID != nil {
		driver.CityID = req.CityID
	}
	if req.Name != nil {
		driver.Name = *req.Name
	}
	if req.Phone != nil {
		driver.Phone = *req.Phone
	}
	if req.Email != nil {
		driver.Email = req.Email
	}
	if req.VehicleInfo != nil {
		driver.VehicleInfo = req.VehicleInfo
	}

	if err := h.driverRepo.Update(driver); err != nil {
		respondError(c, apperrors.Internal("failed to update driver", err))
		return
	}

	c.JSON(http.StatusOK, driver)
}

// DeleteDriver removes a driver
func (h *DriverHandler) DeleteDriver(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if driver.Status == models.DriverStatusOnTrip {
		respondError(c, apperrors.Conflict("driver is on a trip"))
		return
	}

	if err := h.driverRepo.Delete(driver.ID); err != nil {
		respondError(c, apperrors.Internal("failed to delete driver", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "driver deleted"})
}

// UpdateStatus sets the driver's availability status
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	driver, err := h.dispatch.SetStatus(c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, driver)
}

// UpdateLocation upserts the driver's latest position, latest-wins
func (h *DriverHandler) UpdateLocation(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location := &models.Location{DriverID: driver.ID, Lat: req.Lat, Lng: req.Lng}
	if err := h.locationRepo.Upsert(location); err != nil {
		respondError(c, apperrors.Internal("failed to update location", err))
		return
	}

	c.JSON(http.StatusOK, location)
}

// GetLocation retrieves the driver's last reported position
func (h *DriverHandler) GetLocation(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	location, err := h.locationRepo.GetByDriverID(driver.ID)
	if err != nil {
		respondError(c, apperrors.Internal("failed to get location", err))
		return
	}
	if location == nil {
		respondError(c, apperrors.NotFound("driver has not reported a location"))
		return
	}

	c.JSON(http.StatusOK, location)
}

// CreateAvailability declares an availability window for a driver.
// Windows for the same driver must not overlap.
func (h *DriverHandler) CreateAvailability(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req models.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	overlapping, err := h.availabilityRepo.CountOverlapping(driver.ID, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, apperrors.Internal("failed to check availability conflicts", err))
		return
	}
	if overlapping > 0 {
		respondError(c, apperrors.Conflict("availability window overlaps an existing one"))
		return
	}

	window := &models.DriverAvailability{
		DriverID:  driver.ID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := h.availabilityRepo.Create(window); err != nil {
		respondError(c, apperrors.Internal("failed to create availability window", err))
		return
	}

	c.JSON(http.StatusCreated, window)
}

// ListAvailability lists a driver's availability windows
func (h *DriverHandler) ListAvailability(c *gin.Context) {
	driver, err := h.fetchDriver(c)
	if err != nil {
		respondError(c, err)
		return
	}

	windows, err := h.availabilityRepo.GetByDriverID(driver.ID)
	if err != nil {
		respondError(c, apperrors.Internal("failed to list availability windows", err))
		return
	}

	c.JSON(http.StatusOK, windows)
}

// DeleteAvailability removes an availability window
func (h *DriverHandler) DeleteAvailability(c *gin.Context) {
	if _, err := h.fetchDriver(c); err != nil {
		respondError(c, err)
		return
	}

	if err := h.availabilityRepo.Delete(c.Param("windowId")); err != nil {
		if err == sql.ErrNoRows {
			respondError(c, apperrors.NotFound("availability window not found"))
			return
		}
		respondError(c, apperrors.Internal("failed to delete availability window", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "availability window deleted"})
}

// fetchDriver loads the driver from the path parameter and verifies tenant
// scope
func (h *DriverHandler) fetchDriver(c *gin.Context) (*models.Driver, error) {
	driver, err := h.driverRepo.GetByID(c.Param("id"))
	if err != nil {
		return nil, apperrors.Internal("failed to get driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver not found")
	}

	userCtx, exists := middleware.GetUserContext(c)
	if exists && userCtx.CompanyID != nil && *userCtx.CompanyID != driver.CompanyID {
		return nil, apperrors.NotFound("driver not found")
	}

	return driver, nil
}
