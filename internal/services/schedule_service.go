package services

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/notify"
	"github.com/fleetride/backoffice/internal/observability"
)

// availabilityWindow is how long a driver is assumed open for return-leg
// work after the declared return time.
const availabilityWindow = 12 * time.Hour

// ScheduleService owns the intercity schedule state machine
// (scheduled -> in_progress -> arrived -> returning -> completed, cancelled
// from any non-terminal state), overlap detection against a driver's
// existing schedules, and cascading cancellation of return bookings.
type ScheduleService struct {
	db               database.DB
	scheduleRepo     *database.ScheduleRepository
	bookingRepo      *database.BookingRepository
	cityRepo         *database.CityRepository
	companyRepo      *database.CompanyRepository
	availabilityRepo *database.AvailabilityRepository
	dispatch         *DispatchService
	publisher        notify.Publisher
	logger           *logrus.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	db database.DB,
	scheduleRepo *database.ScheduleRepository,
	bookingRepo *database.BookingRepository,
	cityRepo *database.CityRepository,
	companyRepo *database.CompanyRepository,
	availabilityRepo *database.AvailabilityRepository,
	dispatch *DispatchService,
	publisher notify.Publisher,
	logger *logrus.Logger,
) *ScheduleService {
	return &ScheduleService{
		db:               db,
		scheduleRepo:     scheduleRepo,
		bookingRepo:      bookingRepo,
		cityRepo:         cityRepo,
		companyRepo:      companyRepo,
		availabilityRepo: availabilityRepo,
		dispatch:         dispatch,
		publisher:        publisher,
		logger:           logger,
	}
}

// CreateSchedule creates an intercity schedule for a driver. The driver is
// claimed and the overlap check runs inside the same transaction as the
// insert, so a concurrent creation for the same driver cannot slip past the
// check.
func (s *ScheduleService) CreateSchedule(companyID string, req *models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	company, err := s.companyRepo.GetByID(companyID)
	if err != nil {
		return nil, apperrors.Internal("failed to get company", err)
	}
	if company == nil {
		return nil, apperrors.NotFound("company not found")
	}
	if !company.IsApproved() {
		return nil, apperrors.Conflict("company is not approved")
	}

	for _, cityID := range []string{req.FromCityID, req.ToCityID} {
		city, err := s.cityRepo.GetByID(cityID)
		if err != nil {
			return nil, apperrors.Internal("failed to get city", err)
		}
		if city == nil {
			return nil, apperrors.NotFound("city not found")
		}
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	// Claiming first takes the driver row lock, serializing overlap checks
	// for the same driver.
	if _, err := s.dispatch.ClaimDriverTx(tx, req.DriverID, companyID); err != nil {
		return nil, err
	}

	effectiveEnd := req.EstimatedArrival
	if req.ReturnTime != nil {
		effectiveEnd = *req.ReturnTime
	}

	overlapping, err := s.scheduleRepo.CountOverlappingTx(tx, req.DriverID, req.Departure, req.EstimatedArrival, effectiveEnd)
	if err != nil {
		return nil, apperrors.Internal("failed to check schedule conflicts", err)
	}
	if overlapping > 0 {
		return nil, apperrors.Conflict("driver already has an overlapping schedule")
	}

	schedule := &models.Schedule{
		CompanyID:        companyID,
		DriverID:         req.DriverID,
		FromCityID:       req.FromCityID,
		ToCityID:         req.ToCityID,
		Departure:        req.Departure,
		EstimatedArrival: req.EstimatedArrival,
		ReturnTime:       req.ReturnTime,
		Status:           models.ScheduleStatusScheduled,
	}
	if err := s.scheduleRepo.CreateTx(tx, schedule); err != nil {
		return nil, apperrors.Internal("failed to create schedule", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit schedule", err)
	}

	observability.ScheduleTransitionsTotal.WithLabelValues(string(schedule.Status)).Inc()
	s.publish("schedule_created", "Schedule created", "A new intercity schedule was created", schedule)

	s.logger.WithFields(logrus.Fields{
		"schedule_id": schedule.ID,
		"driver_id":   schedule.DriverID,
		"departure":   schedule.Departure,
	}).Info("Schedule created")

	return schedule, nil
}

// StartTrip moves a scheduled trip to in_progress
func (s *ScheduleService) StartTrip(scheduleID string) (*models.Schedule, error) {
	return s.transition(scheduleID, models.ScheduleStatusInProgress,
		[]models.ScheduleStatus{models.ScheduleStatusScheduled},
		func(tx *sqlx.Tx, schedule *models.Schedule) error {
			return s.dispatch.SetOnTripTx(tx, schedule.DriverID)
		})
}

// MarkArrived moves an in-progress trip to arrived and releases the driver.
// When a return time is supplied it is recorded and a 12 hour availability
// window is opened from it.
func (s *ScheduleService) MarkArrived(scheduleID string, returnTime *time.Time) (*models.Schedule, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	schedule, err := s.scheduleRepo.GetByIDForUpdate(tx, scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock schedule", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule not found")
	}

	if schedule.Status != models.ScheduleStatusInProgress {
		return nil, apperrors.Conflict("schedule is not in progress")
	}

	if err := s.scheduleRepo.MarkArrivedTx(tx, scheduleID, returnTime); err != nil {
		return nil, apperrors.Internal("failed to mark schedule arrived", err)
	}

	if err := s.dispatch.ReleaseDriverTx(tx, schedule.DriverID); err != nil {
		return nil, err
	}

	if returnTime != nil {
		window := &models.DriverAvailability{
			DriverID:  schedule.DriverID,
			StartTime: *returnTime,
			EndTime:   returnTime.Add(availabilityWindow),
		}
		if err := s.availabilityRepo.CreateTx(tx, window); err != nil {
			return nil, apperrors.Internal("failed to create availability window", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit arrival", err)
	}

	schedule.Status = models.ScheduleStatusArrived
	if returnTime != nil {
		schedule.ReturnTime = returnTime
	}

	observability.ScheduleTransitionsTotal.WithLabelValues(string(schedule.Status)).Inc()
	s.publish("schedule_arrived", "Trip arrived", "The trip reached its destination", schedule)

	return schedule, nil
}

// StartReturn moves an arrived trip to returning
func (s *ScheduleService) StartReturn(scheduleID string) (*models.Schedule, error) {
	return s.transition(scheduleID, models.ScheduleStatusReturning,
		[]models.ScheduleStatus{models.ScheduleStatusArrived},
		func(tx *sqlx.Tx, schedule *models.Schedule) error {
			return s.dispatch.SetOnTripTx(tx, schedule.DriverID)
		})
}

// CompleteSchedule completes a schedule and releases the driver. Trips
// without a return leg complete directly from arrived.
func (s *ScheduleService) CompleteSchedule(scheduleID string) (*models.Schedule, error) {
	return s.transition(scheduleID, models.ScheduleStatusCompleted,
		[]models.ScheduleStatus{models.ScheduleStatusArrived, models.ScheduleStatusReturning},
		func(tx *sqlx.Tx, schedule *models.Schedule) error {
			return s.dispatch.ReleaseDriverTx(tx, schedule.DriverID)
		})
}

// CancelSchedule cancels a non-terminal schedule, releases the driver and
// cancels every linked return booking
func (s *ScheduleService) CancelSchedule(scheduleID string) (*models.Schedule, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	schedule, err := s.scheduleRepo.GetByIDForUpdate(tx, scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock schedule", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule not found")
	}

	if schedule.IsTerminal() {
		return nil, apperrors.Conflict("schedule is already %s", schedule.Status)
	}

	if err := s.scheduleRepo.UpdateStatusTx(tx, scheduleID, models.ScheduleStatusCancelled); err != nil {
		return nil, apperrors.Internal("failed to cancel schedule", err)
	}

	if err := s.dispatch.ReleaseDriverTx(tx, schedule.DriverID); err != nil {
		return nil, err
	}

	cancelled, err := s.bookingRepo.CancelByScheduleTx(tx, scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to cancel return bookings", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit cancellation", err)
	}

	schedule.Status = models.ScheduleStatusCancelled

	observability.ScheduleTransitionsTotal.WithLabelValues(string(schedule.Status)).Inc()
	s.publish("schedule_cancelled", "Schedule cancelled", "The schedule and its return bookings were cancelled", schedule)

	s.logger.WithFields(logrus.Fields{
		"schedule_id":        scheduleID,
		"bookings_cancelled": cancelled,
	}).Info("Schedule cancelled")

	return schedule, nil
}

// GetAvailableReturnSchedules resolves both cities by name, case- and
// whitespace-insensitive, and returns non-terminal schedules between them
// that have a return leg declared
func (s *ScheduleService) GetAvailableReturnSchedules(fromCityName, toCityName string) ([]models.Schedule, error) {
	fromCity, err := s.cityRepo.GetByName(fromCityName)
	if err != nil {
		return nil, apperrors.Internal("failed to resolve city", err)
	}
	if fromCity == nil {
		return nil, apperrors.NotFound("from city not found")
	}

	toCity, err := s.cityRepo.GetByName(toCityName)
	if err != nil {
		return nil, apperrors.Internal("failed to resolve city", err)
	}
	if toCity == nil {
		return nil, apperrors.NotFound("to city not found")
	}

	schedules, err := s.scheduleRepo.GetAvailableReturns(fromCity.ID, toCity.ID)
	if err != nil {
		return nil, apperrors.Internal("failed to list return schedules", err)
	}

	return schedules, nil
}

// AssignBookingToSchedule links a booking to a schedule's return-booking set
func (s *ScheduleService) AssignBookingToSchedule(bookingID, scheduleID string) error {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return apperrors.Internal("failed to get booking", err)
	}
	if booking == nil {
		return apperrors.NotFound("booking not found")
	}

	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return apperrors.Internal("failed to get schedule", err)
	}
	if schedule == nil {
		return apperrors.NotFound("schedule not found")
	}

	if err := s.bookingRepo.AssignToSchedule(bookingID, scheduleID); err != nil {
		return apperrors.Internal("failed to link booking to schedule", err)
	}

	return nil
}

// GetScheduleBookings lists the return bookings linked to a schedule
func (s *ScheduleService) GetScheduleBookings(scheduleID string) ([]models.Booking, error) {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to get schedule", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule not found")
	}

	bookings, err := s.bookingRepo.GetByScheduleID(scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to list schedule bookings", err)
	}
	return bookings, nil
}

// GetSchedule retrieves a schedule by ID
func (s *ScheduleService) GetSchedule(scheduleID string) (*models.Schedule, error) {
	schedule, err := s.scheduleRepo.GetByID(scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to get schedule", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule not found")
	}
	return schedule, nil
}

// ListSchedules retrieves all schedules for a company
func (s *ScheduleService) ListSchedules(companyID string) ([]models.Schedule, error) {
	schedules, err := s.scheduleRepo.GetByCompanyID(companyID)
	if err != nil {
		return nil, apperrors.Internal("failed to list schedules", err)
	}
	return schedules, nil
}

// transition runs the common lock-check-update-commit sequence for simple
// schedule status moves. sideEffect runs inside the transaction after the
// status update.
func (s *ScheduleService) transition(
	scheduleID string,
	target models.ScheduleStatus,
	from []models.ScheduleStatus,
	sideEffect func(*sqlx.Tx, *models.Schedule) error,
) (*models.Schedule, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	schedule, err := s.scheduleRepo.GetByIDForUpdate(tx, scheduleID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock schedule", err)
	}
	if schedule == nil {
		return nil, apperrors.NotFound("schedule not found")
	}

	allowed := false
	for _, status := range from {
		if schedule.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.Conflict("schedule cannot move from %s to %s", schedule.Status, target)
	}

	if err := s.scheduleRepo.UpdateStatusTx(tx, scheduleID, target); err != nil {
		return nil, apperrors.Internal("failed to update schedule status", err)
	}

	if sideEffect != nil {
		if err := sideEffect(tx, schedule); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit transition", err)
	}

	schedule.Status = target
	observability.ScheduleTransitionsTotal.WithLabelValues(string(target)).Inc()
	s.publish("schedule_"+string(target), "Schedule updated", "The schedule moved to "+string(target), schedule)

	return schedule, nil
}

// publish fans out a schedule event after commit, best effort
func (s *ScheduleService) publish(eventType, title, message string, schedule *models.Schedule) {
	event := notify.Event{
		Type:      eventType,
		Title:     title,
		Message:   message,
		CompanyID: &schedule.CompanyID,
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.WithError(err).WithField("schedule_id", schedule.ID).Warn("Failed to publish schedule event")
	}
}
