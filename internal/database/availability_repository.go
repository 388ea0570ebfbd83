package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/fleetride/backoffice/internal/models"
)

// AvailabilityRepository handles database operations for driver availability windows
type AvailabilityRepository struct {
	db DB
}

// NewAvailabilityRepository creates a new AvailabilityRepository
func NewAvailabilityRepository(db DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Create adds an availability window
func (r *AvailabilityRepository) Create(window *models.DriverAvailability) error {
	query := `
		INSERT INTO driver_availability (id, driver_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	if window.ID == "" {
		window.ID = uuid.New().String()
	}

	err := r.db.QueryRow(
		query,
		window.ID, window.DriverID, window.StartTime, window.EndTime,
	).Scan(&window.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create availability window: %w", err)
	}

	return nil
}

// CreateTx adds an availability window inside tx (schedule arrival path)
func (r *AvailabilityRepository) CreateTx(tx *sqlx.Tx, window *models.DriverAvailability) error {
	query := `
		INSERT INTO driver_availability (id, driver_id, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	if window.ID == "" {
		window.ID = uuid.New().String()
	}

	err := tx.QueryRow(
		query,
		window.ID, window.DriverID, window.StartTime, window.EndTime,
	).Scan(&window.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create availability window: %w", err)
	}

	return nil
}

// CountOverlapping counts existing windows of the driver intersecting
// [start, end)
func (r *AvailabilityRepository) CountOverlapping(driverID string, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM driver_availability
		WHERE driver_id = $1 AND start_time < $3 AND end_time > $2
	`

	var count int
	err := r.db.QueryRow(query, driverID, start, end).Scan(&count)
	return count, err
}

// GetByDriverID retrieves all windows for a driver, earliest first
func (r *AvailabilityRepository) GetByDriverID(driverID string) ([]models.DriverAvailability, error) {
	query := `
		SELECT id, driver_id, start_time, end_time, created_at
		FROM driver_availability
		WHERE driver_id = $1
		ORDER BY start_time
	`

	rows, err := r.db.Query(query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := []models.DriverAvailability{}
	for rows.Next() {
		var w models.DriverAvailability
		if err := rows.Scan(&w.ID, &w.DriverID, &w.StartTime, &w.EndTime, &w.CreatedAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	return windows, rows.Err()
}

// Delete removes an availability window
func (r *AvailabilityRepository) Delete(windowID string) error {
	result, err := r.db.Exec(`DELETE FROM driver_availability WHERE id = $1`, windowID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
