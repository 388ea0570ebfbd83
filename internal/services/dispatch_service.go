package services

import (
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/observability"
)

// DispatchService is the sole mutator of driver status. The booking and
// schedule engines claim and release drivers exclusively through it, inside
// their own transactions, so two concurrent claims against the same driver
// serialize on the row lock taken by ClaimDriverTx.
type DispatchService struct {
	driverRepo *database.DriverRepository
	logger     *logrus.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(driverRepo *database.DriverRepository, logger *logrus.Logger) *DispatchService {
	return &DispatchService{driverRepo: driverRepo, logger: logger}
}

// SetStatus sets a driver's status directly. Only enum membership is
// enforced; any status is reachable from any other.
func (s *DispatchService) SetStatus(driverID string, target models.DriverStatus) (*models.Driver, error) {
	if !models.IsValidDriverStatus(target) {
		return nil, apperrors.Validation("status must be one of: offline, online, on_trip")
	}

	driver, err := s.driverRepo.GetByID(driverID)
	if err != nil {
		return nil, apperrors.Internal("failed to get driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver not found")
	}

	if err := s.driverRepo.UpdateStatus(driverID, target); err != nil {
		return nil, apperrors.Internal("failed to update driver status", err)
	}

	s.logger.WithFields(logrus.Fields{
		"driver_id": driverID,
		"from":      driver.Status,
		"to":        target,
	}).Info("Driver status updated")

	driver.Status = target
	return driver, nil
}

// ClaimDriverTx locks the driver row inside tx, verifies the driver is
// claimable and moves it to on_trip. companyID, when non-empty, must match
// the driver's company. The lock guarantees that of two concurrent claims
// against the same online driver exactly one succeeds.
func (s *DispatchService) ClaimDriverTx(tx *sqlx.Tx, driverID, companyID string) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByIDForUpdate(tx, driverID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock driver", err)
	}
	if driver == nil {
		return nil, apperrors.NotFound("driver not found")
	}

	if companyID != "" && driver.CompanyID != companyID {
		return nil, apperrors.Conflict("driver does not belong to this company")
	}

	if !driver.IsOnline() {
		observability.DispatchConflictsTotal.Inc()
		return nil, apperrors.Conflict("driver is not available")
	}

	if err := s.driverRepo.UpdateStatusTx(tx, driverID, models.DriverStatusOnTrip); err != nil {
		return nil, apperrors.Internal("failed to claim driver", err)
	}

	driver.Status = models.DriverStatusOnTrip
	return driver, nil
}

// ReleaseDriverTx returns the driver to online inside tx. Called at the
// terminal or paused point of whichever booking or schedule holds the driver.
func (s *DispatchService) ReleaseDriverTx(tx *sqlx.Tx, driverID string) error {
	if err := s.driverRepo.UpdateStatusTx(tx, driverID, models.DriverStatusOnline); err != nil {
		return apperrors.Internal("failed to release driver", err)
	}
	return nil
}

// SetOnTripTx moves a driver the caller already holds back to on_trip inside
// tx, without the online precondition. Used by schedule progression
// (start, start-return) where the driver was claimed at creation.
func (s *DispatchService) SetOnTripTx(tx *sqlx.Tx, driverID string) error {
	if err := s.driverRepo.UpdateStatusTx(tx, driverID, models.DriverStatusOnTrip); err != nil {
		return apperrors.Internal("failed to update driver status", err)
	}
	return nil
}
