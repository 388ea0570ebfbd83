package models

import (
	"errors"
	"time"
)

// Location is the latest known position of a driver, upserted latest-wins
type Location struct {
	DriverID  string    `json:"driver_id" db:"driver_id"`
	Lat       float64   `json:"lat" db:"lat"`
	Lng       float64   `json:"lng" db:"lng"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateLocationRequest represents a driver position update. Zero is a
// valid coordinate on both axes, so range enforcement lives in Validate
// rather than in binding tags.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate validates the location update request
func (r *UpdateLocationRequest) Validate() error {
	if r.Lat < -90 || r.Lat > 90 {
		return errors.New("lat must be between -90 and 90")
	}
	if r.Lng < -180 || r.Lng > 180 {
		return errors.New("lng must be between -180 and 180")
	}
	return nil
}
