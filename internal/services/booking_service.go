package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/notify"
	"github.com/fleetride/backoffice/internal/observability"
)

// BookingService owns the booking state machine
// (pending -> accepted -> ongoing -> completed, cancelled from any
// non-terminal state) and the driver claim/release rules around it. Every
// compound driver+booking mutation runs in a single transaction with the
// driver row locked through DispatchService.
type BookingService struct {
	db           database.DB
	bookingRepo  *database.BookingRepository
	driverRepo   *database.DriverRepository
	customerRepo *database.CustomerRepository
	companyRepo  *database.CompanyRepository
	dispatch     *DispatchService
	publisher    notify.Publisher
	logger       *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	db database.DB,
	bookingRepo *database.BookingRepository,
	driverRepo *database.DriverRepository,
	customerRepo *database.CustomerRepository,
	companyRepo *database.CompanyRepository,
	dispatch *DispatchService,
	publisher notify.Publisher,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		db:           db,
		bookingRepo:  bookingRepo,
		driverRepo:   driverRepo,
		customerRepo: customerRepo,
		companyRepo:  companyRepo,
		dispatch:     dispatch,
		publisher:    publisher,
		logger:       logger,
	}
}

// Create creates a booking for a company. Without a driver the booking is
// pending; with a driver the driver is claimed and the booking starts
// accepted, atomically.
func (s *BookingService) Create(companyID string, req *models.CreateBookingRequest) (*models.Booking, error) {
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

	customer, err := s.customerRepo.GetByID(req.CustomerID)
	if err != nil {
		return nil, apperrors.Internal("failed to get customer", err)
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer not found")
	}
	if customer.CompanyID != companyID {
		return nil, apperrors.Conflict("customer does not belong to this company")
	}

	booking := &models.Booking{
		CompanyID:   companyID,
		CustomerID:  req.CustomerID,
		Pickup:      req.Pickup,
		Dropoff:     req.Dropoff,
		Fare:        req.Fare,
		RequestedAt: time.Now(),
	}

	if req.DriverID == nil {
		booking.Status = models.BookingStatusPending
		if err := s.bookingRepo.Create(booking); err != nil {
			return nil, apperrors.Internal("failed to create booking", err)
		}
	} else {
		tx, err := s.db.Beginx()
		if err != nil {
			return nil, apperrors.Internal("failed to begin transaction", err)
		}
		defer tx.Rollback()

		if _, err := s.dispatch.ClaimDriverTx(tx, *req.DriverID, companyID); err != nil {
			return nil, err
		}

		booking.DriverID = req.DriverID
		booking.Status = models.BookingStatusAccepted
		if err := s.bookingRepo.CreateTx(tx, booking); err != nil {
			return nil, apperrors.Internal("failed to create booking", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, apperrors.Internal("failed to commit booking", err)
		}
	}

	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_created", "New booking", "A new booking was created", booking)

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"company_id": companyID,
		"status":     booking.Status,
	}).Info("Booking created")

	return booking, nil
}

// AssignDriver assigns an online driver to a pending, driverless booking.
// The booking moves to accepted and the driver to on_trip as one atomic unit.
func (s *BookingService) AssignDriver(bookingID, driverID string) (*models.Booking, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.DriverID != nil {
		return nil, apperrors.Conflict("booking already has a driver")
	}
	if booking.Status != models.BookingStatusPending {
		return nil, apperrors.Conflict("booking is not pending")
	}

	if _, err := s.dispatch.ClaimDriverTx(tx, driverID, booking.CompanyID); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.AssignDriverTx(tx, bookingID, driverID); err != nil {
		return nil, apperrors.Internal("failed to assign driver", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit assignment", err)
	}

	booking.DriverID = &driverID
	booking.Status = models.BookingStatusAccepted

	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_assigned", "Driver assigned", "A driver was assigned to the booking", booking)

	return booking, nil
}

// AcceptBooking marks the booking accepted without re-validating or claiming
// the driver; claiming happens exactly once, at creation-with-driver or at
// AssignDriver. A booking with no driver cannot be accepted, since an
// accepted booking must carry one.
func (s *BookingService) AcceptBooking(bookingID string) (*models.Booking, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.IsTerminal() {
		return nil, apperrors.Conflict("booking is already %s", booking.Status)
	}
	if booking.Status == models.BookingStatusOngoing {
		return nil, apperrors.Conflict("booking is already in progress")
	}
	if booking.DriverID == nil {
		return nil, apperrors.Conflict("booking has no driver assigned")
	}

	if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusAccepted); err != nil {
		return nil, apperrors.Internal("failed to accept booking", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit acceptance", err)
	}

	booking.Status = models.BookingStatusAccepted
	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()

	return booking, nil
}

// StartTrip moves an accepted booking to ongoing
func (s *BookingService) StartTrip(bookingID string) (*models.Booking, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.Status != models.BookingStatusAccepted {
		return nil, apperrors.Conflict("trip can only be started from an accepted booking")
	}

	if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusOngoing); err != nil {
		return nil, apperrors.Internal("failed to start trip", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit trip start", err)
	}

	booking.Status = models.BookingStatusOngoing
	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_started", "Trip started", "The trip is now in progress", booking)

	return booking, nil
}

// CancelBooking cancels a non-terminal booking and releases its driver,
// if any, back to online
func (s *BookingService) CancelBooking(bookingID string) (*models.Booking, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.IsTerminal() {
		return nil, apperrors.Conflict("booking is already %s", booking.Status)
	}

	if err := s.bookingRepo.UpdateStatusTx(tx, bookingID, models.BookingStatusCancelled); err != nil {
		return nil, apperrors.Internal("failed to cancel booking", err)
	}

	if booking.DriverID != nil {
		if err := s.dispatch.ReleaseDriverTx(tx, *booking.DriverID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit cancellation", err)
	}

	booking.Status = models.BookingStatusCancelled
	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_cancelled", "Booking cancelled", "The booking was cancelled", booking)

	return booking, nil
}

// CompleteBooking completes an ongoing booking, applying the fare when
// provided, and releases the driver back to online
func (s *BookingService) CompleteBooking(bookingID string, fare *float64) (*models.Booking, error) {
	if fare != nil && *fare < 0 {
		return nil, apperrors.Validation("fare cannot be negative")
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.Status != models.BookingStatusOngoing {
		return nil, apperrors.Conflict("only ongoing bookings can be completed")
	}

	if err := s.bookingRepo.CompleteTx(tx, bookingID, fare); err != nil {
		return nil, apperrors.Internal("failed to complete booking", err)
	}

	if booking.DriverID != nil {
		if err := s.dispatch.ReleaseDriverTx(tx, *booking.DriverID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit completion", err)
	}

	booking.Status = models.BookingStatusCompleted
	if fare != nil {
		booking.Fare = fare
	}

	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_completed", "Booking completed", "The trip was completed", booking)

	return booking, nil
}

// Update applies a generic patch to a non-terminal booking. Driver changes
// release the old driver and claim the new one through the same dispatch
// helpers the specific transitions use, so both entry points agree on
// claim/release semantics.
func (s *BookingService) Update(bookingID string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	tx, err := s.db.Beginx()
	if err != nil {
		return nil, apperrors.Internal("failed to begin transaction", err)
	}
	defer tx.Rollback()

	booking, err := s.bookingRepo.GetByIDForUpdate(tx, bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}

	if booking.IsTerminal() {
		return nil, apperrors.Conflict("booking is already %s", booking.Status)
	}

	if req.Pickup != nil {
		booking.Pickup = *req.Pickup
	}
	if req.Dropoff != nil {
		booking.Dropoff = *req.Dropoff
	}
	if req.Fare != nil {
		booking.Fare = req.Fare
	}

	claimed := false
	if req.DriverID != nil && (booking.DriverID == nil || *booking.DriverID != *req.DriverID) {
		if booking.DriverID != nil {
			if err := s.dispatch.ReleaseDriverTx(tx, *booking.DriverID); err != nil {
				return nil, err
			}
		}
		if _, err := s.dispatch.ClaimDriverTx(tx, *req.DriverID, booking.CompanyID); err != nil {
			return nil, err
		}
		booking.DriverID = req.DriverID
		claimed = true
		if booking.Status == models.BookingStatusPending {
			booking.Status = models.BookingStatusAccepted
		}
	}

	if req.Status != nil && *req.Status != booking.Status {
		switch *req.Status {
		case models.BookingStatusOngoing:
			if booking.DriverID == nil {
				return nil, apperrors.Conflict("booking has no driver assigned")
			}
		case models.BookingStatusCompleted:
			if booking.DriverID == nil {
				return nil, apperrors.Conflict("booking has no driver assigned")
			}
			if err := s.dispatch.ReleaseDriverTx(tx, *booking.DriverID); err != nil {
				return nil, err
			}
		case models.BookingStatusCancelled:
			if booking.DriverID != nil {
				if err := s.dispatch.ReleaseDriverTx(tx, *booking.DriverID); err != nil {
					return nil, err
				}
			}
		case models.BookingStatusAccepted:
			if booking.DriverID == nil {
				return nil, apperrors.Conflict("booking has no driver assigned")
			}
			if !claimed {
				if _, err := s.dispatch.ClaimDriverTx(tx, *booking.DriverID, booking.CompanyID); err != nil {
					return nil, err
				}
			}
		case models.BookingStatusPending:
			if booking.DriverID != nil {
				return nil, apperrors.Conflict("a booking with a driver cannot return to pending")
			}
		}
		booking.Status = *req.Status
	}

	if err := s.bookingRepo.UpdateTx(tx, booking); err != nil {
		return nil, apperrors.Internal("failed to update booking", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("failed to commit update", err)
	}

	observability.BookingTransitionsTotal.WithLabelValues(string(booking.Status)).Inc()
	s.publish("booking_updated", "Booking updated", "The booking was updated", booking)

	return booking, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(bookingID string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, apperrors.Internal("failed to get booking", err)
	}
	if booking == nil {
		return nil, apperrors.NotFound("booking not found")
	}
	return booking, nil
}

// ListBookings retrieves all bookings for a company
func (s *BookingService) ListBookings(companyID string) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.GetByCompanyID(companyID)
	if err != nil {
		return nil, apperrors.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

// GetStatistics aggregates booking counts, completion/cancellation rates and
// completed revenue over a day/week/month window anchored at call time
func (s *BookingService) GetStatistics(companyID string, period models.StatsPeriod) (*models.BookingStatistics, error) {
	since, err := period.WindowStart(time.Now())
	if err != nil {
		return nil, apperrors.Validation("%s", err.Error())
	}

	total, completed, cancelled, revenue, err := s.bookingRepo.GetStatistics(companyID, since)
	if err != nil {
		return nil, apperrors.Internal("failed to aggregate statistics", err)
	}

	stats := &models.BookingStatistics{
		Period:        period,
		TotalBookings: total,
		Completed:     completed,
		Cancelled:     cancelled,
		TotalRevenue:  revenue,
	}
	if total > 0 {
		stats.CompletionRate = float64(completed) / float64(total) * 100
		stats.CancellationRate = float64(cancelled) / float64(total) * 100
	}

	return stats, nil
}

// publish fans out a booking event after commit, best effort
func (s *BookingService) publish(eventType, title, message string, booking *models.Booking) {
	event := notify.Event{
		Type:      eventType,
		Title:     title,
		Message:   message,
		BookingID: &booking.ID,
		CompanyID: &booking.CompanyID,
	}
	if err := s.publisher.Publish(context.Background(), event); err != nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Failed to publish booking event")
	}
}
