package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
)

func TestSetStatus(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := NewDispatchService(database.NewDriverRepository(db), testLogger())

	t.Run("Any status is reachable from any other", func(t *testing.T) {
		mock.ExpectQuery(`FROM drivers WHERE id`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOnTrip))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs("driver-1", models.DriverStatusOffline).
			WillReturnResult(sqlmock.NewResult(0, 1))

		driver, err := service.SetStatus("driver-1", models.DriverStatusOffline)
		require.NoError(t, err)
		assert.Equal(t, models.DriverStatusOffline, driver.Status)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown status is a validation error", func(t *testing.T) {
		driver, err := service.SetStatus("driver-1", models.DriverStatus("driving"))
		require.Error(t, err)
		assert.Nil(t, driver)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	})

	t.Run("Missing driver", func(t *testing.T) {
		mock.ExpectQuery(`FROM drivers WHERE id`).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(driverColumns))

		driver, err := service.SetStatus("missing", models.DriverStatusOnline)
		require.Error(t, err)
		assert.Nil(t, driver)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimDriverTx(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := NewDispatchService(database.NewDriverRepository(db), testLogger())

	t.Run("Online driver is claimed", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOnline))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs("driver-1", models.DriverStatusOnTrip).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)

		driver, err := service.ClaimDriverTx(tx, "driver-1", "company-1")
		require.NoError(t, err)
		assert.Equal(t, models.DriverStatusOnTrip, driver.Status)

		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Offline driver conflicts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOffline))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		driver, err := service.ClaimDriverTx(tx, "driver-1", "company-1")
		require.Error(t, err)
		assert.Nil(t, driver)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
		assert.Equal(t, "driver is not available", apperrors.MessageOf(err))
	})

	t.Run("On-trip driver conflicts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-1", models.DriverStatusOnTrip))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		driver, err := service.ClaimDriverTx(tx, "driver-1", "company-1")
		require.Error(t, err)
		assert.Nil(t, driver)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("Company mismatch conflicts", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-2", models.DriverStatusOnline))
		mock.ExpectRollback()

		tx, err := db.Beginx()
		require.NoError(t, err)
		defer tx.Rollback()

		driver, err := service.ClaimDriverTx(tx, "driver-1", "company-1")
		require.Error(t, err)
		assert.Nil(t, driver)
		assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	})

	t.Run("Empty company skips the tenant check", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM drivers WHERE id (.+) FOR UPDATE`).
			WithArgs("driver-1").
			WillReturnRows(driverRow("driver-1", "company-2", models.DriverStatusOnline))
		mock.ExpectExec(`UPDATE drivers SET status`).
			WithArgs("driver-1", models.DriverStatusOnTrip).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tx, err := db.Beginx()
		require.NoError(t, err)

		driver, err := service.ClaimDriverTx(tx, "driver-1", "")
		require.NoError(t, err)
		assert.Equal(t, models.DriverStatusOnTrip, driver.Status)

		require.NoError(t, tx.Commit())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReleaseDriverTx(t *testing.T) {
	db, mock, closeDB := newTestDB(t)
	defer closeDB()

	service := NewDispatchService(database.NewDriverRepository(db), testLogger())

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE drivers SET status`).
		WithArgs("driver-1", models.DriverStatusOnline).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	require.NoError(t, service.ReleaseDriverTx(tx, "driver-1"))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
