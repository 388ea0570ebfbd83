package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/fleetride/backoffice/internal/models"
)

func newMockDB(t *testing.T) (DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	wrapped := &PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}
	return wrapped, mock, func() { db.Close() }
}

var testBookingColumns = []string{
	"id", "company_id", "customer_id", "driver_id", "schedule_id",
	"pickup", "dropoff", "status", "fare", "requested_at", "created_at", "updated_at",
}

func TestBookingCreate(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)

	t.Run("Success assigns id and requested_at", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		booking := &models.Booking{
			CompanyID:  "company-1",
			CustomerID: "customer-1",
			Pickup:     "Station Rd",
			Dropoff:    "Main St",
			Status:     models.BookingStatusPending,
		}

		err := repo.Create(booking)
		require.NoError(t, err)
		assert.NotEmpty(t, booking.ID)
		assert.False(t, booking.RequestedAt.IsZero())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database error is wrapped", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnError(fmt.Errorf("database error"))

		booking := &models.Booking{
			CompanyID:  "company-1",
			CustomerID: "customer-1",
			Pickup:     "Station Rd",
			Dropoff:    "Main St",
			Status:     models.BookingStatusPending,
		}

		err := repo.Create(booking)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create booking")

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingGetByID(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)

	t.Run("Found with nullable fields set", func(t *testing.T) {
		now := time.Now()
		driverID := "driver-1"
		fare := 42.5

		mock.ExpectQuery(`FROM bookings WHERE id`).
			WithArgs("booking-1").
			WillReturnRows(sqlmock.NewRows(testBookingColumns).AddRow(
				"booking-1", "company-1", "customer-1", driverID, nil,
				"Station Rd", "Main St", models.BookingStatusAccepted, fare, now, now, now,
			))

		booking, err := repo.GetByID("booking-1")
		require.NoError(t, err)
		require.NotNil(t, booking)
		require.NotNil(t, booking.DriverID)
		assert.Equal(t, driverID, *booking.DriverID)
		assert.Nil(t, booking.ScheduleID)
		require.NotNil(t, booking.Fare)
		assert.Equal(t, fare, *booking.Fare)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Absent booking yields nil, not error", func(t *testing.T) {
		mock.ExpectQuery(`FROM bookings WHERE id`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(testBookingColumns))

		booking, err := repo.GetByID("missing")
		require.NoError(t, err)
		assert.Nil(t, booking)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingUpdateStatusTx(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)

	t.Run("Zero rows means missing booking", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("missing", models.BookingStatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		err = repo.UpdateStatusTx(tx, "missing", models.BookingStatusCancelled)
		assert.Error(t, err)
	})
}

func TestCancelByScheduleTx(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("schedule-1", models.BookingStatusCancelled,
			models.BookingStatusCompleted, models.BookingStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	cancelled, err := repo.CancelByScheduleTx(tx, "schedule-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cancelled)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingGetStatistics(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)
	since := time.Now().AddDate(0, 0, -7)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs("company-1", since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "completed", "cancelled", "revenue"}).
			AddRow(10, 6, 2, 210.0))

	total, completed, cancelled, revenue, err := repo.GetStatistics("company-1", since)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, 6, completed)
	assert.Equal(t, 2, cancelled)
	assert.InDelta(t, 210.0, revenue, 0.001)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingGetByCompanyID(t *testing.T) {
	db, mock, closeDB := newMockDB(t)
	defer closeDB()

	repo := NewBookingRepository(db)
	now := time.Now()

	mock.ExpectQuery(`FROM bookings WHERE company_id`).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows(testBookingColumns).
			AddRow("booking-2", "company-1", "customer-1", nil, nil,
				"A", "B", models.BookingStatusPending, nil, now, now, now).
			AddRow("booking-1", "company-1", "customer-2", nil, nil,
				"C", "D", models.BookingStatusCancelled, nil, now.Add(-time.Hour), now, now))

	bookings, err := repo.GetByCompanyID("company-1")
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, "booking-2", bookings[0].ID)
	assert.Equal(t, "booking-1", bookings[1].ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}
