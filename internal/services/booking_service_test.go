package services

import (
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/notify"
)

func newTestDB(t *testing.T) (database.DB, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	wrapped := &database.PostgresDB{DB: sqlx.NewDb(db, "sqlmock")}
	return wrapped, mock, func() { db.Close() }
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newBookingService(db database.DB) *BookingService {
	logger := testLogger()
	driverRepo := database.NewDriverRepository(db)
	dispatch := NewDispatchService(driverRepo, logger)
	return NewBookingService(
		db,
		database.NewBookingRepository(db),
		driverRepo,
		database.NewCustomerRepository(db),
		database.NewCompanyRepository(db),
		dispatch,
		notify.NoopPublisher{},
		logger,
	)
}

var (
	driverColumns = []string{
		"id", "company_id", "city_id", "name", "phone", "email",
		"vehicle_info", "status", "created_at", "updated_at",
	}
	bookingColumns = []string{
		"id", "company_id", "customer_id", "driver_id", "schedule_id",
		"pickup", "dropoff", "status", "fare", "requested_at", "created_at", "updated_at",
	}
	companyColumns = []string{
		"id", "name", "email", "phone", "address", "status",
		"rejection_reason", "approved_at", "created_at", "updated_at",
	}
	customerColumns = []string{
		"id", "company_id", "name", "phone", "email", "created_at", "updated_at",
	}
)

func driverRow(id, companyID string, status models.DriverStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(driverColumns).AddRow(
		id, companyID, nil, "Test Driver", "+15550000001", nil, nil, status, now, now,
	)
}

func bookingRow(id, companyID string, driverID *string, status models.BookingStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingColumns).AddRow(
		id, companyID, "customer-1", driverID, nil,
		"Station Rd", "Main St", status, nil, now, now, now,
	)
}

func approvedCompanyRow(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(companyColumns).AddRow(
		id, "Acme Rides", "ops@acme.test", nil, nil, models.CompanyStatusApproved,
		nil, now, now, now,
	)
}

func customerRow(id, companyID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(customerColumns).AddRow(
		id, companyID, "Jane Passenger", "+15550000002", nil, now, now,
	)
}

func TestCreateBooking(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	req := &models.CreateBookingRequest{
		CustomerID: "customer-1",
		Pickup:     "Station Rd",
		Dropoff:    "Main St",
	}

	t.Run("Driverless booking starts pending", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`FROM companies WHERE id`).
			WithArgs("company-1").
			WillReturnRows(approvedCompanyRow("company-1"))
		mock.ExpectQuery(`FROM customers WHERE id`).
			WithArgs("customer-1").
			WillReturnRows(customerRow("customer-1", "company-1"))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		booking, err := service.Create("company-1", req)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Nil(t, booking.DriverID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking with driver claims atomically", func(t *testing.T) {
		now := time.Now()
		driverID := "driver-1"
		withDriver := *req
		withDriver.DriverID = &driverID

		mock.ExpectQuery(`FROM companies WHERE id`).
			WithArgs("company-1").
			WillReturnRows(approvedCompanyRow("company-1"))
		mock.ExpectQuery(`FROM customers WHERE id`).
			WithArgs("customer-1").
			WillReturnRows(customerRow("customer-1", "company-1"))
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs(driverID).
			WillReturnRows(driverRow(driverID, "company-1", models.DriverStatusOnline))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs(driverID, models.DriverStatusOnTrip).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		booking, err := service.Create("company-1", &withDriver)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusAccepted, booking.Status)
		require.NotNil(t, booking.DriverID)
		assert.Equal(t, driverID, *booking.DriverID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Offline driver aborts creation", func(t *testing.T) {
		driverID := "driver-1"
		withDriver := *req
		withDriver.DriverID = &driverID

		mock.ExpectQuery(`FROM companies WHERE id`).
			WithArgs("company-1").
			WillReturnRows(approvedCompanyRow("company-1"))
		mock.ExpectQuery(`FROM customers WHERE id`).
			WithArgs("customer-1").
			WillReturnRows(customerRow("customer-1", "company-1"))
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs(driverID).
			WillReturnRows(driverRow(driverID, "company-1", models.DriverStatusOffline))
		mock.ExpectRollback()

		booking, err := service.Create("company-1", &withDriver)
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unapproved company rejected", func(t *testing.T) {
		now := time.Now()
		pending := sqlmock.NewRows(companyColumns).AddRow(
			"company-1", "Acme Rides", "ops@acme.test", nil, nil, models.CompanyStatusPending,
			nil, nil, now, now,
		)

		mock.ExpectQuery(`FROM companies WHERE id`).
			WithArgs("company-1").
			WillReturnRows(pending)

		booking, err := service.Create("company-1", req)
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cross-tenant customer rejected", func(t *testing.T) {
		mock.ExpectQuery(`FROM companies WHERE id`).
			WithArgs("company-1").
			WillReturnRows(approvedCompanyRow("company-1"))
		mock.ExpectQuery(`FROM customers WHERE id`).
			WithArgs("customer-1").
			WillReturnRows(customerRow("customer-1", "company-2"))

		booking, err := service.Create("company-1", req)
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAssignDriver(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOnline))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs("driver-1", models.DriverStatusOnTrip).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings SET driver_id`).
			WithArgs("booking-1", "driver-1", models.BookingStatusAccepted).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.AssignDriver("booking-1", "driver-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusAccepted, booking.Status)
		require.NotNil(t, booking.DriverID)
		assert.Equal(t, "driver-1", *booking.DriverID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking already has a driver", func(t *testing.T) {
		existing := "driver-0"

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &existing, models.BookingStatusAccepted))
		mock.ExpectRollback()

		booking, err := service.AssignDriver("booking-1", "driver-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking not pending", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusCancelled))
		mock.ExpectRollback()

		booking, err := service.AssignDriver("booking-1", "driver-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driver not online leaves booking untouched", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOnTrip))
		mock.ExpectRollback()

		booking, err := service.AssignDriver("booking-1", "driver-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Equal(t, "driver is not available", apperrors.MessageOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driver from another company rejected", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-2", models.DriverStatusOnline))
		mock.ExpectRollback()

		booking, err := service.AssignDriver("booking-1", "driver-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		booking, err := service.AssignDriver("missing", "driver-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcceptBooking(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	t.Run("Accept with driver succeeds without re-claiming", func(t *testing.T) {
		driverID := "driver-1"

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusAccepted))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("booking-1", models.BookingStatusAccepted).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.AcceptBooking("booking-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusAccepted, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driverless booking cannot be accepted", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectRollback()

		booking, err := service.AcceptBooking("booking-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Terminal booking rejected", func(t *testing.T) {
		driverID := "driver-1"

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusCompleted))
		mock.ExpectRollback()

		booking, err := service.AcceptBooking("booking-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStartTrip(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)
	driverID := "driver-1"

	t.Run("Accepted booking starts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusAccepted))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("booking-1", models.BookingStatusOngoing).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.StartTrip("booking-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusOngoing, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pending booking cannot start", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectRollback()

		booking, err := service.StartTrip("booking-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	t.Run("Cancelling releases the driver", func(t *testing.T) {
		driverID := "driver-1"

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusAccepted))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("booking-1", models.BookingStatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs(driverID, models.DriverStatusOnline).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.CancelBooking("booking-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driverless booking cancels without driver update", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs("booking-1", models.BookingStatusCancelled).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.CancelBooking("booking-1")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelling twice conflicts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusCancelled))
		mock.ExpectRollback()

		booking, err := service.CancelBooking("booking-1")
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Equal(t, "booking is already cancelled", apperrors.MessageOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCompleteBooking(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)
	driverID := "driver-1"

	t.Run("Ongoing booking completes with fare", func(t *testing.T) {
		fare := 42.50

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusOngoing))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs("booking-1", models.BookingStatusCompleted, fare).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs(driverID, models.DriverStatusOnline).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := service.CompleteBooking("booking-1", &fare)
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCompleted, booking.Status)
		require.NotNil(t, booking.Fare)
		assert.Equal(t, fare, *booking.Fare)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Accepted booking cannot complete", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusAccepted))
		mock.ExpectRollback()

		booking, err := service.CompleteBooking("booking-1", nil)
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Negative fare rejected before any query", func(t *testing.T) {
		fare := -1.0

		booking, err := service.CompleteBooking("booking-1", &fare)
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateBooking(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	t.Run("Driver swap releases old and claims new", func(t *testing.T) {
		oldDriver := "driver-1"
		newDriver := "driver-2"
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &oldDriver, models.BookingStatusAccepted))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs(oldDriver, models.DriverStatusOnline).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs(newDriver).
			WillReturnRows(driverRow(newDriver, "company-1", models.DriverStatusOnline))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs(newDriver, models.DriverStatusOnTrip).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`UPDATE bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
		mock.ExpectCommit()

		booking, err := service.Update("booking-1", &models.UpdateBookingRequest{DriverID: &newDriver})
		require.NoError(t, err)
		require.NotNil(t, booking.DriverID)
		assert.Equal(t, newDriver, *booking.DriverID)
		assert.Equal(t, models.BookingStatusAccepted, booking.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pending with driver rejected", func(t *testing.T) {
		driverID := "driver-1"
		pending := models.BookingStatusPending

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", &driverID, models.BookingStatusAccepted))
		mock.ExpectRollback()

		booking, err := service.Update("booking-1", &models.UpdateBookingRequest{Status: &pending})
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driverless booking cannot move to ongoing", func(t *testing.T) {
		ongoing := models.BookingStatusOngoing

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectRollback()

		booking, err := service.Update("booking-1", &models.UpdateBookingRequest{Status: &ongoing})
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driverless booking cannot move to completed", func(t *testing.T) {
		completed := models.BookingStatusCompleted

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusPending))
		mock.ExpectRollback()

		booking, err := service.Update("booking-1", &models.UpdateBookingRequest{Status: &completed})
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Terminal booking rejects any patch", func(t *testing.T) {
		pickup := "New Pickup"

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM bookings WHERE id (.+) FOR UPDATE`).
			WithArgs("booking-1").
			WillReturnRows(bookingRow("booking-1", "company-1", nil, models.BookingStatusCompleted))
		mock.ExpectRollback()

		booking, err := service.Update("booking-1", &models.UpdateBookingRequest{Pickup: &pickup})
		require.Error(t, err)
		assert.Nil(t, booking)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetStatistics(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := newBookingService(db)

	t.Run("Rates and revenue computed", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("company-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "completed", "cancelled", "revenue"}).
				AddRow(10, 6, 2, 210.0))

		stats, err := service.GetStatistics("company-1", models.StatsPeriodWeek)
		require.NoError(t, err)
		assert.Equal(t, 10, stats.TotalBookings)
		assert.Equal(t, 6, stats.Completed)
		assert.Equal(t, 2, stats.Cancelled)
		assert.InDelta(t, 60.0, stats.CompletionRate, 0.001)
		assert.InDelta(t, 20.0, stats.CancellationRate, 0.001)
		assert.InDelta(t, 210.0, stats.TotalRevenue, 0.001)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty window yields zero rates", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("company-1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count", "completed", "cancelled", "revenue"}).
				AddRow(0, 0, 0, 0.0))

		stats, err := service.GetStatistics("company-1", models.StatsPeriodDay)
		require.NoError(t, err)
		assert.Zero(t, stats.CompletionRate)
		assert.Zero(t, stats.CancellationRate)
		assert.Zero(t, stats.TotalRevenue)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown period is a validation error", func(t *testing.T) {
		stats, err := service.GetStatistics("company-1", models.StatsPeriod("year"))
		require.Error(t, err)
		assert.Nil(t, stats)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})
}
