package models

import (
	"errors"
	"strings"
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusAccepted  BookingStatus = "accepted"
	BookingStatusOngoing   BookingStatus = "ongoing"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// IsValidBookingStatus reports whether s is a known booking status
func IsValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusOngoing,
		BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// Booking represents a point-to-point ride request
type Booking struct {
	ID          string        `json:"id" db:"id"`
	CompanyID   string        `json:"company_id" db:"company_id"`
	CustomerID  string        `json:"customer_id" db:"customer_id"`
	DriverID    *string       `json:"driver_id,omitempty" db:"driver_id"`
	ScheduleID  *string       `json:"schedule_id,omitempty" db:"schedule_id"` // return-leg match, if any
	Pickup      string        `json:"pickup" db:"pickup"`
	Dropoff     string        `json:"dropoff" db:"dropoff"`
	Status      BookingStatus `json:"status" db:"status"`
	Fare        *float64      `json:"fare,omitempty" db:"fare"`
	RequestedAt time.Time     `json:"requested_at" db:"requested_at"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the booking has reached a final state.
// Terminal bookings admit no further status or driver mutation.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}

// CanBeCancelled reports whether the booking may still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return !b.IsTerminal()
}

// CreateBookingRequest represents the request to create a booking
type CreateBookingRequest struct {
	CustomerID string   `json:"customer_id" binding:"required"`
	Pickup     string   `json:"pickup" binding:"required"`
	Dropoff    string   `json:"dropoff" binding:"required"`
	DriverID   *string  `json:"driver_id,omitempty"`
	Fare       *float64 `json:"fare,omitempty"`
}

// Validate validates the create booking request
func (r *CreateBookingRequest) Validate() error {
	if strings.TrimSpace(r.Pickup) == "" {
		return errors.New("pickup is required")
	}
	if strings.TrimSpace(r.Dropoff) == "" {
		return errors.New("dropoff is required")
	}
	if r.Fare != nil && *r.Fare < 0 {
		return errors.New("fare cannot be negative")
	}
	return nil
}

// AssignDriverRequest represents the request to assign a driver to a booking
type AssignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
}

// CompleteBookingRequest represents the request to complete a booking
type CompleteBookingRequest struct {
	Fare *float64 `json:"fare,omitempty"`
}

// UpdateBookingRequest represents a generic booking patch
type UpdateBookingRequest struct {
	Pickup   *string        `json:"pickup,omitempty"`
	Dropoff  *string        `json:"dropoff,omitempty"`
	Fare     *float64       `json:"fare,omitempty"`
	DriverID *string        `json:"driver_id,omitempty"`
	Status   *BookingStatus `json:"status,omitempty"`
}

// Validate validates the booking patch
func (r *UpdateBookingRequest) Validate() error {
	if r.Pickup != nil && strings.TrimSpace(*r.Pickup) == "" {
		return errors.New("pickup cannot be empty")
	}
	if r.Dropoff != nil && strings.TrimSpace(*r.Dropoff) == "" {
		return errors.New("dropoff cannot be empty")
	}
	if r.Fare != nil && *r.Fare < 0 {
		return errors.New("fare cannot be negative")
	}
	if r.Status != nil && !IsValidBookingStatus(*r.Status) {
		return errors.New("invalid booking status")
	}
	return nil
}

// StatsPeriod is the aggregation window for booking statistics
type StatsPeriod string

const (
	StatsPeriodDay   StatsPeriod = "day"
	StatsPeriodWeek  StatsPeriod = "week"
	StatsPeriodMonth StatsPeriod = "month"
)

// WindowStart returns the start of the aggregation window anchored at now
func (p StatsPeriod) WindowStart(now time.Time) (time.Time, error) {
	switch p {
	case StatsPeriodDay:
		return now.AddDate(0, 0, -1), nil
	case StatsPeriodWeek:
		return now.AddDate(0, 0, -7), nil
	case StatsPeriodMonth:
		return now.AddDate(0, -1, 0), nil
	}
	return time.Time{}, errors.New("period must be one of: day, week, month")
}

// BookingStatistics aggregates booking outcomes over a window
type BookingStatistics struct {
	Period           StatsPeriod `json:"period"`
	TotalBookings    int         `json:"total_bookings"`
	Completed        int         `json:"completed"`
	Cancelled        int         `json:"cancelled"`
	CompletionRate   float64     `json:"completion_rate"`
	CancellationRate float64     `json:"cancellation_rate"`
	TotalRevenue     float64     `json:"total_revenue"`
}
