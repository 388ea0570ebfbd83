package models

import (
	"errors"
	"time"
)

// ScheduleStatus represents the lifecycle state of an intercity schedule
type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusArrived    ScheduleStatus = "arrived"
	ScheduleStatusReturning  ScheduleStatus = "returning"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

// Schedule represents an intercity trip leg with an optional return leg
type Schedule struct {
	ID               string         `json:"id" db:"id"`
	CompanyID        string         `json:"company_id" db:"company_id"`
	DriverID         string         `json:"driver_id" db:"driver_id"`
	FromCityID       string         `json:"from_city_id" db:"from_city_id"`
	ToCityID         string         `json:"to_city_id" db:"to_city_id"`
	Departure        time.Time      `json:"departure" db:"departure"`
	EstimatedArrival time.Time      `json:"estimated_arrival" db:"estimated_arrival"`
	ReturnTime       *time.Time     `json:"return_time,omitempty" db:"return_time"`
	Status           ScheduleStatus `json:"status" db:"status"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the schedule has reached a final state
func (s *Schedule) IsTerminal() bool {
	return s.Status == ScheduleStatusCompleted || s.Status == ScheduleStatusCancelled
}

// CanBeCancelled reports whether the schedule may still be cancelled
func (s *Schedule) CanBeCancelled() bool {
	return !s.IsTerminal()
}

// CreateScheduleRequest represents the request to create an intercity schedule
type CreateScheduleRequest struct {
	DriverID         string     `json:"driver_id" binding:"required"`
	FromCityID       string     `json:"from_city_id" binding:"required"`
	ToCityID         string     `json:"to_city_id" binding:"required"`
	Departure        time.Time  `json:"departure" binding:"required"`
	EstimatedArrival time.Time  `json:"estimated_arrival" binding:"required"`
	ReturnTime       *time.Time `json:"return_time,omitempty"`
}

// Validate validates the create schedule request
func (r *CreateScheduleRequest) Validate() error {
	if !r.Departure.Before(r.EstimatedArrival) {
		return errors.New("departure must be before estimated_arrival")
	}
	if r.ReturnTime != nil && r.ReturnTime.Before(r.EstimatedArrival) {
		return errors.New("return_time cannot be before estimated_arrival")
	}
	if r.FromCityID == r.ToCityID {
		return errors.New("from_city_id and to_city_id must differ")
	}
	return nil
}

// MarkArrivedRequest represents the arrival payload for a schedule
type MarkArrivedRequest struct {
	ReturnTime *time.Time `json:"return_time,omitempty"`
}

// AssignBookingRequest represents the request to link a booking to a
// schedule's return leg
type AssignBookingRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}
