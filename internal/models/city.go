package models

import (
	"errors"
	"strings"
	"time"
)

// City represents an origin or destination for intercity schedules
type City struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateCityRequest represents the request to add a city
type CreateCityRequest struct {
	Name string `json:"name" binding:"required"`
}

// Validate validates the create city request
func (r *CreateCityRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}
