package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/services"
)

// ScheduleHandler exposes the intercity schedule lifecycle over HTTP
type ScheduleHandler struct {
	scheduleService *services.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(scheduleService *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// CreateSchedule creates an intercity schedule
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	schedule, err := h.scheduleService.CreateSchedule(companyID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// GetSchedule retrieves a schedule by ID
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.GetSchedule(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// ListSchedules retrieves all schedules for the caller's company
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	schedules, err := h.scheduleService.ListSchedules(companyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// StartTrip moves a schedule to in_progress
func (h *ScheduleHandler) StartTrip(c *gin.Context) {
	schedule, err := h.scheduleService.StartTrip(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// MarkArrived moves a schedule to arrived, optionally declaring a return time
func (h *ScheduleHandler) MarkArrived(c *gin.Context) {
	var req models.MarkArrivedRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	schedule, err := h.scheduleService.MarkArrived(c.Param("id"), req.ReturnTime)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// StartReturn moves a schedule to returning
func (h *ScheduleHandler) StartReturn(c *gin.Context) {
	schedule, err := h.scheduleService.StartReturn(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// CompleteSchedule completes a schedule
func (h *ScheduleHandler) CompleteSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.CompleteSchedule(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// CancelSchedule cancels a schedule and its linked return bookings
func (h *ScheduleHandler) CancelSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.CancelSchedule(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// GetAvailableReturnSchedules lists schedules with a declared return leg
// between two cities resolved by name
func (h *ScheduleHandler) GetAvailableReturnSchedules(c *gin.Context) {
	fromCity := c.Query("fromCity")
	toCity := c.Query("toCity")
	if fromCity == "" || toCity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromCity and toCity are required"})
		return
	}

	schedules, err := h.scheduleService.GetAvailableReturnSchedules(fromCity, toCity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// ListBookings lists the return bookings linked to a schedule
func (h *ScheduleHandler) ListBookings(c *gin.Context) {
	bookings, err := h.scheduleService.GetScheduleBookings(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// AssignBooking links a booking to the schedule's return-booking set
func (h *ScheduleHandler) AssignBooking(c *gin.Context) {
	var req models.AssignBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.scheduleService.AssignBookingToSchedule(req.BookingID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "booking linked to schedule"})
}
