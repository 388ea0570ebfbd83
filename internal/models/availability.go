package models

import (
	"errors"
	"time"
)

// DriverAvailability is a declared open time window for a driver
type DriverAvailability struct {
	ID        string    `json:"id" db:"id"`
	DriverID  string    `json:"driver_id" db:"driver_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateAvailabilityRequest represents the request to declare an availability window
type CreateAvailabilityRequest struct {
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// Validate validates the availability window request
func (r *CreateAvailabilityRequest) Validate() error {
	if !r.StartTime.Before(r.EndTime) {
		return errors.New("start_time must be before end_time")
	}
	return nil
}

// Overlaps reports whether the window intersects [start, end)
func (a *DriverAvailability) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && a.EndTime.After(start)
}
