package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/fleetride/backoffice/internal/models"
)

// ScheduleRepository handles database operations for the schedules table
type ScheduleRepository struct {
	db DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, company_id, driver_id, from_city_id, to_city_id, departure, estimated_arrival, return_time, status, created_at, updated_at`

// CreateTx creates a new schedule inside tx. The overlap check must have run
// in the same transaction.
func (r *ScheduleRepository) CreateTx(tx *sqlx.Tx, schedule *models.Schedule) error {
	query := `
		INSERT INTO schedules (id, company_id, driver_id, from_city_id, to_city_id, departure, estimated_arrival, return_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}

	err := tx.QueryRow(
		query,
		schedule.ID, schedule.CompanyID, schedule.DriverID, schedule.FromCityID, schedule.ToCityID,
		schedule.Departure, schedule.EstimatedArrival, schedule.ReturnTime, schedule.Status,
	).Scan(&schedule.CreatedAt, &schedule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	return nil
}

// GetByID retrieves a schedule by ID, nil when absent
func (r *ScheduleRepository) GetByID(scheduleID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	return r.scanSchedule(r.db.QueryRow(query, scheduleID))
}

// GetByIDForUpdate retrieves a schedule inside tx with a row-level lock
func (r *ScheduleRepository) GetByIDForUpdate(tx *sqlx.Tx, scheduleID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1 FOR UPDATE`
	return r.scanSchedule(tx.QueryRow(query, scheduleID))
}

// GetByCompanyID retrieves all schedules for a company, next departure first
func (r *ScheduleRepository) GetByCompanyID(companyID string) ([]models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE company_id = $1 ORDER BY departure`

	rows, err := r.db.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSchedules(rows)
}

// CountOverlappingTx counts non-terminal schedules of the driver whose travel
// window overlaps the candidate window inside tx. effectiveEnd is the
// candidate's return time when present, otherwise its estimated arrival.
func (r *ScheduleRepository) CountOverlappingTx(tx *sqlx.Tx, driverID string, departure, estimatedArrival, effectiveEnd time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM schedules
		WHERE driver_id = $1
		  AND status NOT IN ($2, $3)
		  AND (
			(departure <= $5 AND estimated_arrival >= $4)
			OR (return_time IS NOT NULL AND departure <= $6 AND estimated_arrival >= $4)
		  )
	`

	var count int
	err := tx.QueryRow(query, driverID,
		models.ScheduleStatusCompleted, models.ScheduleStatusCancelled,
		departure, estimatedArrival, effectiveEnd,
	).Scan(&count)
	return count, err
}

// UpdateStatusTx updates the schedule status inside tx
func (r *ScheduleRepository) UpdateStatusTx(tx *sqlx.Tx, scheduleID string, status models.ScheduleStatus) error {
	query := `UPDATE schedules SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(query, scheduleID, status)
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

// MarkArrivedTx moves the schedule to arrived and records the return time
// when supplied, inside tx
func (r *ScheduleRepository) MarkArrivedTx(tx *sqlx.Tx, scheduleID string, returnTime *time.Time) error {
	query := `
		UPDATE schedules
		SET status = $2, return_time = COALESCE($3, return_time), updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(query, scheduleID, models.ScheduleStatusArrived, returnTime)
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

// GetAvailableReturns retrieves schedules between the two cities that have a
// return leg declared
func (r *ScheduleRepository) GetAvailableReturns(fromCityID, toCityID string) ([]models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE from_city_id = $1
		  AND to_city_id = $2
		  AND return_time IS NOT NULL
		  AND status NOT IN ($3, $4)
		ORDER BY return_time
	`

	rows, err := r.db.Query(query, fromCityID, toCityID,
		models.ScheduleStatusCompleted, models.ScheduleStatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSchedules(rows)
}

func (r *ScheduleRepository) scanSchedule(row scanner) (*models.Schedule, error) {
	schedule := &models.Schedule{}
	var returnTime sql.NullTime

	err := row.Scan(
		&schedule.ID, &schedule.CompanyID, &schedule.DriverID,
		&schedule.FromCityID, &schedule.ToCityID,
		&schedule.Departure, &schedule.EstimatedArrival, &returnTime,
		&schedule.Status, &schedule.CreatedAt, &schedule.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if returnTime.Valid {
		schedule.ReturnTime = &returnTime.Time
	}

	return schedule, nil
}

func (r *ScheduleRepository) scanSchedules(rows *sql.Rows) ([]models.Schedule, error) {
	schedules := []models.Schedule{}

	for rows.Next() {
		var schedule models.Schedule
		var returnTime sql.NullTime

		err := rows.Scan(
			&schedule.ID, &schedule.CompanyID, &schedule.DriverID,
			&schedule.FromCityID, &schedule.ToCityID,
			&schedule.Departure, &schedule.EstimatedArrival, &returnTime,
			&schedule.Status, &schedule.CreatedAt, &schedule.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if returnTime.Valid {
			schedule.ReturnTime = &returnTime.Time
		}

		schedules = append(schedules, schedule)
	}

	return schedules, rows.Err()
}
