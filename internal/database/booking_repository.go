package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/fleetride/backoffice/internal/models"
)

// BookingRepository handles database operations for the bookings table
type BookingRepository struct {
	db DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, company_id, customer_id, driver_id, schedule_id, pickup, dropoff, status, fare, requested_at, created_at, updated_at`

// Create creates a new booking outside a transaction (driverless path)
func (r *BookingRepository) Create(booking *models.Booking) error {
	return r.create(r.db, booking)
}

// CreateTx creates a new booking inside tx (driver-claiming path)
func (r *BookingRepository) CreateTx(tx *sqlx.Tx, booking *models.Booking) error {
	return r.create(tx, booking)
}

type execQueryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (r *BookingRepository) create(q execQueryRower, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (id, company_id, customer_id, driver_id, schedule_id, pickup, dropoff, status, fare, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	if booking.ID == "" {
		booking.ID = uuid.New().String()
	}
	if booking.RequestedAt.IsZero() {
		booking.RequestedAt = time.Now()
	}

	err := q.QueryRow(
		query,
		booking.ID, booking.CompanyID, booking.CustomerID, booking.DriverID, booking.ScheduleID,
		booking.Pickup, booking.Dropoff, booking.Status, booking.Fare, booking.RequestedAt,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by ID, nil when absent
func (r *BookingRepository) GetByID(bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanBooking(r.db.QueryRow(query, bookingID))
}

// GetByIDForUpdate retrieves a booking inside tx with a row-level lock
func (r *BookingRepository) GetByIDForUpdate(tx *sqlx.Tx, bookingID string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return r.scanBooking(tx.QueryRow(query, bookingID))
}

// GetByCompanyID retrieves all bookings for a company, newest first
func (r *BookingRepository) GetByCompanyID(companyID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE company_id = $1 ORDER BY requested_at DESC`

	rows, err := r.db.Query(query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// GetByScheduleID retrieves the return bookings linked to a schedule
func (r *BookingRepository) GetByScheduleID(scheduleID string) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE schedule_id = $1 ORDER BY requested_at`

	rows, err := r.db.Query(query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanBookings(rows)
}

// UpdateStatusTx updates the booking status inside tx
func (r *BookingRepository) UpdateStatusTx(tx *sqlx.Tx, bookingID string, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(query, bookingID, status)
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

// AssignDriverTx sets the driver and moves the booking to accepted inside tx
func (r *BookingRepository) AssignDriverTx(tx *sqlx.Tx, bookingID, driverID string) error {
	query := `UPDATE bookings SET driver_id = $2, status = $3, updated_at = NOW() WHERE id = $1`

	result, err := tx.Exec(query, bookingID, driverID, models.BookingStatusAccepted)
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

// CompleteTx marks the booking completed inside tx; a nil fare retains the
// existing fare
func (r *BookingRepository) CompleteTx(tx *sqlx.Tx, bookingID string, fare *float64) error {
	query := `
		UPDATE bookings
		SET status = $2, fare = COALESCE($3, fare), updated_at = NOW()
		WHERE id = $1
	`

	result, err := tx.Exec(query, bookingID, models.BookingStatusCompleted, fare)
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

// UpdateTx persists the full mutable field set of a booking inside tx
func (r *BookingRepository) UpdateTx(tx *sqlx.Tx, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET driver_id = $2, schedule_id = $3, pickup = $4, dropoff = $5,
			status = $6, fare = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.QueryRow(
		query,
		booking.ID, booking.DriverID, booking.ScheduleID, booking.Pickup,
		booking.Dropoff, booking.Status, booking.Fare,
	).Scan(&booking.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	return nil
}

// CancelByScheduleTx cancels every non-terminal return booking of a schedule
// inside tx and returns the number of bookings cancelled
func (r *BookingRepository) CancelByScheduleTx(tx *sqlx.Tx, scheduleID string) (int64, error) {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE schedule_id = $1 AND status NOT IN ($3, $4)
	`

	result, err := tx.Exec(query, scheduleID,
		models.BookingStatusCancelled, models.BookingStatusCompleted, models.BookingStatusCancelled)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// AssignToSchedule links a booking to a schedule's return-booking set
func (r *BookingRepository) AssignToSchedule(bookingID, scheduleID string) error {
	query := `UPDATE bookings SET schedule_id = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, bookingID, scheduleID)
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

// GetStatistics aggregates booking outcomes for a company since the given
// time. Missing fares count as zero revenue.
func (r *BookingRepository) GetStatistics(companyID string, since time.Time) (total, completed, cancelled int, revenue float64, err error) {
	query := `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE status = 'completed'),
			   COUNT(*) FILTER (WHERE status = 'cancelled'),
			   COALESCE(SUM(fare) FILTER (WHERE status = 'completed'), 0)
		FROM bookings
		WHERE company_id = $1 AND requested_at >= $2
	`

	err = r.db.QueryRow(query, companyID, since).Scan(&total, &completed, &cancelled, &revenue)
	return total, completed, cancelled, revenue, err
}

func (r *BookingRepository) scanBooking(row scanner) (*models.Booking, error) {
	booking := &models.Booking{}
	var driverID, scheduleID sql.NullString
	var fare sql.NullFloat64

	err := row.Scan(
		&booking.ID, &booking.CompanyID, &booking.CustomerID, &driverID, &scheduleID,
		&booking.Pickup, &booking.Dropoff, &booking.Status, &fare,
		&booking.RequestedAt, &booking.CreatedAt, &booking.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		booking.DriverID = &driverID.String
	}
	if scheduleID.Valid {
		booking.ScheduleID = &scheduleID.String
	}
	if fare.Valid {
		booking.Fare = &fare.Float64
	}

	return booking, nil
}

func (r *BookingRepository) scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	bookings := []models.Booking{}

	for rows.Next() {
		var booking models.Booking
		var driverID, scheduleID sql.NullString
		var fare sql.NullFloat64

		err := rows.Scan(
			&booking.ID, &booking.CompanyID, &booking.CustomerID, &driverID, &scheduleID,
			&booking.Pickup, &booking.Dropoff, &booking.Status, &fare,
			&booking.RequestedAt, &booking.CreatedAt, &booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if driverID.Valid {
			booking.DriverID = &driverID.String
		}
		if scheduleID.Valid {
			booking.ScheduleID = &scheduleID.String
		}
		if fare.Valid {
			booking.Fare = &fare.Float64
		}

		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
