package models

import (
	"errors"
	"strings"
	"time"
)

// DriverStatus represents the dispatch availability of a driver
type DriverStatus string

const (
	DriverStatusOffline DriverStatus = "offline"
	DriverStatusOnline  DriverStatus = "online"
	DriverStatusOnTrip  DriverStatus = "on_trip"
)

// IsValidDriverStatus reports whether s is a known driver status.
// Any status is reachable from any other; only enum membership is enforced.
func IsValidDriverStatus(s DriverStatus) bool {
	switch s {
	case DriverStatusOffline, DriverStatusOnline, DriverStatusOnTrip:
		return true
	}
	return false
}

// Driver represents a fleet driver belonging to exactly one company
type Driver struct {
	ID          string       `json:"id" db:"id"`
	CompanyID   string       `json:"company_id" db:"company_id"`
	CityID      *string      `json:"city_id,omitempty" db:"city_id"`
	Name        string       `json:"name" db:"name"`
	Phone       string       `json:"phone" db:"phone"`
	Email       *string      `json:"email,omitempty" db:"email"`
	VehicleInfo *string      `json:"vehicle_info,omitempty" db:"vehicle_info"`
	Status      DriverStatus `json:"status" db:"status"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// CreateDriverRequest represents the request to register a driver
type CreateDriverRequest struct {
	CityID      *string `json:"city_id,omitempty"`
	Name        string  `json:"name" binding:"required"`
	Phone       string  `json:"phone" binding:"required"`
	Email       *string `json:"email,omitempty"`
	VehicleInfo *string `json:"vehicle_info,omitempty"`
}

// UpdateDriverRequest represents the request to update driver details
type UpdateDriverRequest struct {
	CityID      *string `json:"city_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	VehicleInfo *string `json:"vehicle_info,omitempty"`
}

// UpdateDriverStatusRequest represents the request to set driver status
type UpdateDriverStatusRequest struct {
	Status DriverStatus `json:"status" binding:"required"`
}

// Validate validates the create driver request
func (r *CreateDriverRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(r.Phone) == "" {
		return errors.New("phone is required")
	}
	return nil
}

// IsOnline reports whether the driver is claimable for dispatch
func (d *Driver) IsOnline() bool {
	return d.Status == DriverStatusOnline
}
