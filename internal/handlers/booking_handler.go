package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/services"
)

// BookingHandler exposes the booking lifecycle over HTTP
type BookingHandler struct {
	bookingService *services.BookingService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

// CreateBooking creates a new booking for the caller's company
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.Create(companyID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booking)
}

// GetBooking retrieves a booking by ID
func (h *BookingHandler) GetBooking(c *gin.Context) {
	booking, err := h.bookingService.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListBookings retrieves all bookings for the caller's company
func (h *BookingHandler) ListBookings(c *gin.Context) {
	companyID, ok := middleware.CompanyScope(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company scope is required"})
		return
	}

	bookings, err := h.bookingService.ListBookings(companyID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// AssignDriver assigns a driver to a pending booking
func (h *BookingHandler) AssignDriver(c *gin.Context) {
	var req models.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.AssignDriver(c.Param("id"), req.DriverID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// AcceptBooking marks a booking accepted
func (h *BookingHandler) AcceptBooking(c *gin.Context) {
	booking, err := h.bookingService.AcceptBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// StartTrip moves an accepted booking to ongoing
func (h *BookingHandler) StartTrip(c *gin.Context) {
	booking, err := h.bookingService.StartTrip(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CompleteBooking completes an ongoing booking
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	var req models.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.CompleteBooking(c.Param("id"), req.Fare)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// CancelBooking cancels a non-terminal booking
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	booking, err := h.bookingService.CancelBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// UpdateBooking applies a generic patch to a booking
func (h *BookingHandler) UpdateBooking(c *gin.Context) {
	var req models.UpdateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.bookingService.Update(c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetStatistics aggregates booking statistics for a company over a period
func (h *BookingHandler) GetStatistics(c *gin.Context) {
	period := models.StatsPeriod(c.DefaultQuery("period", string(models.StatsPeriodDay)))

	stats, err := h.bookingService.GetStatistics(c.Param("companyId"), period)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
