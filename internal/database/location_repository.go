package database

import (
	"database/sql"
	"fmt"

	"github.com/fleetride/backoffice/internal/models"
)

// LocationRepository handles database operations for driver locations
type LocationRepository struct {
	db DB
}

// NewLocationRepository creates a new LocationRepository
func NewLocationRepository(db DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// Upsert stores the latest position of a driver, latest-wins
func (r *LocationRepository) Upsert(location *models.Location) error {
	query := `
		INSERT INTO driver_locations (driver_id, lat, lng, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (driver_id)
		DO UPDATE SET lat = EXCLUDED.lat, lng = EXCLUDED.lng, updated_at = NOW()
		RETURNING updated_at
	`

	err := r.db.QueryRow(query, location.DriverID, location.Lat, location.Lng).
		Scan(&location.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert location: %w", err)
	}

	return nil
}

// GetByDriverID retrieves the latest position of a driver, nil when unknown
func (r *LocationRepository) GetByDriverID(driverID string) (*models.Location, error) {
	query := `SELECT driver_id, lat, lng, updated_at FROM driver_locations WHERE driver_id = $1`

	location := &models.Location{}
	err := r.db.QueryRow(query, driverID).
		Scan(&location.DriverID, &location.Lat, &location.Lng, &location.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return location, nil
}
