// Package booking admits, prices and moves reservations through their
// lifecycle. Admission runs the conflict and availability checks and the
// insert inside one transaction that holds the apartment's row lock.
package booking

import (
	"context"
	"time"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/availability"
	"rentals/server/internal/database"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"
	"rentals/server/internal/pricing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Publisher receives events after the change they describe is committed.
type Publisher interface {
	Push(event models.Event) error
}

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
	PendingTTL time.Duration
}

type Service struct {
	db     *database.Database
	events Publisher
	logger *logrus.Logger
	opts   Options
	now    func() time.Time
}

// NewService creates a booking service. events may be nil.
func NewService(db *database.Database, events Publisher, opts Options, logger *logrus.Logger) *Service {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 50 * time.Millisecond
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 48 * time.Hour
	}
	return &Service{
		db:     db,
		events: events,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

type CreateRequest struct {
	ApartmentID uint
	TenantID    uint
	CheckIn     time.Time
	CheckOut    time.Time
	Guests      int
	Comment     string
}

// Report is the availability of an apartment for an optional stay.
type Report struct {
	ApartmentID uint                      `json:"apartment_id"`
	Available   bool                      `json:"available"`
	TotalPrice  *int64                    `json:"total_price,omitempty"`
	Nights      int                       `json:"nights,omitempty"`
	MinStay     int                       `json:"min_stay"`
	Reason      availability.RejectReason `json:"reason,omitempty"`
	Message     string                    `json:"message,omitempty"`
	BookedDates []string                  `json:"booked_dates"`
	PriceMap    map[string]int64          `json:"price_map"`
}

// Availability resolves the calendar of a bookable apartment. With a zero
// check-in and check-out only the unavailable dates are reported.
func (s *Service) Availability(ctx context.Context, apartmentID uint, checkIn, checkOut time.Time) (*Report, error) {
	hasRange := !checkIn.IsZero() || !checkOut.IsZero()
	if hasRange {
		if err := ValidateRange(checkIn, checkOut); err != nil {
			return nil, err
		}
		checkIn, checkOut = dates.Day(checkIn), dates.Day(checkOut)
	}

	apartment, err := s.bookableApartment(ctx, s.db, apartmentID)
	if err != nil {
		return nil, err
	}

	today := dates.Today(s.now())
	from := today
	if hasRange && checkIn.Before(from) {
		from = checkIn
	}

	calendar, err := s.loadCalendar(ctx, apartment, from)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ApartmentID: apartment.ID,
		MinStay:     apartment.MinStay,
		BookedDates: []string{},
		PriceMap:    map[string]int64{},
	}
	for _, d := range calendar.UnavailableFrom(today) {
		report.BookedDates = append(report.BookedDates, dates.Key(d))
	}
	if !hasRange {
		return report, nil
	}

	report.PriceMap = calendar.PriceMap(checkIn, checkOut)
	if checkIn.Before(today) {
		report.Reason = availability.RejectDateUnavailable
		report.Message = "check-in cannot be in the past"
		return report, nil
	}

	res := calendar.Check(checkIn, checkOut, apartment.MinStay)
	report.Available = res.Available
	report.Nights = res.Nights
	report.Reason = res.Reason
	report.Message = res.Message
	if res.Available {
		total := res.Total
		report.TotalPrice = &total
	}
	return report, nil
}

// Create admits a PENDING booking. Transient storage failures are retried
// with exponential backoff.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	if req.TenantID == 0 {
		return nil, apperrors.Unauthorized("user id is required")
	}
	if err := ValidateRange(req.CheckIn, req.CheckOut); err != nil {
		return nil, err
	}
	req.CheckIn, req.CheckOut = dates.Day(req.CheckIn), dates.Day(req.CheckOut)
	if req.CheckIn.Before(dates.Today(s.now())) {
		return nil, apperrors.InvalidArg("check-in cannot be in the past")
	}
	if req.Guests == 0 {
		req.Guests = 1
	}
	if req.Guests < 0 {
		return nil, apperrors.InvalidArg("guests must be at least 1")
	}

	var (
		booking *models.Booking
		err     error
	)
	delay := s.opts.RetryDelay
	for attempt := 0; ; attempt++ {
		booking, err = s.admit(ctx, req)
		if err == nil || !database.IsRetryable(err) || attempt >= s.opts.MaxRetries {
			break
		}

		s.logger.WithError(err).WithFields(logrus.Fields{
			"apartment_id": req.ApartmentID,
			"attempt":      attempt + 1,
		}).Warn("Retrying booking after transient storage failure")

		select {
		case <-ctx.Done():
			return nil, apperrors.Internal("booking interrupted", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	if err != nil {
		return nil, s.translate(err, req)
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   booking.ID,
		"apartment_id": booking.ApartmentID,
		"tenant_id":    booking.TenantID,
		"nights":       booking.Nights,
	}).Info("Booking created")
	s.publish(models.EventBookingCreated, booking, booking.TenantID)
	return booking, nil
}

func (s *Service) admit(ctx context.Context, req CreateRequest) (*models.Booking, error) {
	var booking *models.Booking
	err := s.db.WithApartmentLock(ctx, req.ApartmentID, func(tx *database.Database) error {
		apartment, err := s.bookableApartment(ctx, tx, req.ApartmentID)
		if err != nil {
			return err
		}
		if apartment.HostID == req.TenantID {
			return apperrors.InvalidArg("hosts cannot book their own apartment")
		}
		if apartment.MaxGuests > 0 && req.Guests > apartment.MaxGuests {
			return apperrors.InvalidArgf("apartment accepts at most %d guests", apartment.MaxGuests)
		}

		active, err := tx.ActiveBookings(ctx, apartment.ID, req.CheckIn)
		if err != nil {
			return err
		}
		if HasConflict(req.CheckIn, req.CheckOut, active) {
			return apperrors.ErrDatesUnavailable
		}

		rules, err := tx.PricingRules(ctx, apartment.ID, req.CheckIn, req.CheckOut)
		if err != nil {
			return err
		}
		calendar := availability.NewCalendar(pricing.NewResolver(apartment.BasePrice, rules), active)
		res := calendar.Check(req.CheckIn, req.CheckOut, apartment.MinStay)
		switch res.Reason {
		case availability.RejectStayTooShort, availability.RejectInvalidRange:
			return apperrors.InvalidArg(res.Message)
		case availability.RejectDateUnavailable:
			return apperrors.Wrap(apperrors.CodeConflict, "dates unavailable", errors.New(res.Message))
		}

		booking = &models.Booking{
			Reference:   uuid.NewString(),
			ApartmentID: apartment.ID,
			TenantID:    req.TenantID,
			HostID:      apartment.HostID,
			StartDate:   req.CheckIn,
			EndDate:     req.CheckOut,
			Nights:      res.Nights,
			Guests:      req.Guests,
			TotalPrice:  res.Total,
			Comment:     req.Comment,
			Status:      models.BookingPending,
			CreatedAt:   s.now().UTC(),
		}
		return tx.CreateBooking(ctx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// translate maps storage outcomes onto client-visible errors.
func (s *Service) translate(err error, req CreateRequest) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, database.ErrNotFound):
		return apperrors.ErrApartmentNotFound
	case errors.Is(err, database.ErrNightTaken):
		return apperrors.ErrDatesUnavailable
	}
	s.logger.WithError(err).WithField("apartment_id", req.ApartmentID).Error("Failed to create booking")
	return apperrors.Internal("failed to create booking", err)
}

func (s *Service) bookableApartment(ctx context.Context, db *database.Database, id uint) (*models.Apartment, error) {
	apartment, err := db.GetApartment(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrApartmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if !apartment.Bookable() {
		return nil, apperrors.ErrApartmentNotFound
	}
	return apartment, nil
}

// loadCalendar builds the read-side calendar from the booked-night ledger.
func (s *Service) loadCalendar(ctx context.Context, apartment *models.Apartment, from time.Time) (*availability.Calendar, error) {
	rules, err := s.db.PricingRules(ctx, apartment.ID, from, time.Time{})
	if err != nil {
		return nil, apperrors.Internal("failed to load pricing rules", err)
	}
	nights, err := s.db.BookedNights(ctx, apartment.ID, from)
	if err != nil {
		return nil, apperrors.Internal("failed to load booked nights", err)
	}
	return availability.NewLedgerCalendar(pricing.NewResolver(apartment.BasePrice, rules), nights), nil
}

// Get returns a booking visible to its tenant, its host or an admin.
func (s *Service) Get(ctx context.Context, id, viewerID uint, admin bool) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && booking.TenantID != viewerID && booking.HostID != viewerID {
		return nil, apperrors.Forbidden("not a party to this booking")
	}
	return booking, nil
}

func (s *Service) ListForTenant(ctx context.Context, tenantID uint) ([]models.Booking, error) {
	bookings, err := s.db.ListBookingsByTenant(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

// ListForHost returns the bookings of a host's apartments, optionally
// filtered by status.
func (s *Service) ListForHost(ctx context.Context, hostID uint, status models.BookingStatus) ([]models.Booking, error) {
	switch status {
	case "", models.BookingPending, models.BookingConfirmed, models.BookingCancelled, models.BookingCompleted:
	default:
		return nil, apperrors.InvalidArgf("unknown booking status %q", status)
	}
	bookings, err := s.db.ListBookingsByHost(ctx, hostID, status)
	if err != nil {
		return nil, apperrors.Internal("failed to list bookings", err)
	}
	return bookings, nil
}

// Confirm accepts a pending request. Only the host may confirm.
func (s *Service) Confirm(ctx context.Context, id, hostID uint) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.HostID != hostID {
		return nil, apperrors.Forbidden("only the host can confirm a booking")
	}
	return s.transition(ctx, booking, []models.BookingStatus{models.BookingPending},
		models.BookingConfirmed, &hostID, models.EventBookingConfirmed)
}

// Reject declines a pending request and frees its nights.
func (s *Service) Reject(ctx context.Context, id, hostID uint) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.HostID != hostID {
		return nil, apperrors.Forbidden("only the host can reject a booking")
	}
	return s.transition(ctx, booking, []models.BookingStatus{models.BookingPending},
		models.BookingCancelled, &hostID, models.EventBookingCancelled)
}

// Cancel withdraws an active booking. Either party may cancel until the
// check-in day.
func (s *Service) Cancel(ctx context.Context, id, userID uint) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.TenantID != userID && booking.HostID != userID {
		return nil, apperrors.Forbidden("not a party to this booking")
	}
	if !dates.Today(s.now()).Before(dates.Stored(booking.StartDate)) {
		return nil, apperrors.FailedPrecondition("bookings can only be cancelled before check-in")
	}
	return s.transition(ctx, booking, models.ActiveBookingStatuses,
		models.BookingCancelled, &userID, models.EventBookingCancelled)
}

// ExpireStalePending cancels requests the host left unanswered for longer
// than the pending TTL.
func (s *Service) ExpireStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.opts.PendingTTL)
	stale, err := s.db.StalePendingBookings(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Internal("failed to load pending bookings", err)
	}

	expired := 0
	for i := range stale {
		ok, err := s.db.TransitionBooking(ctx, stale[i].ID,
			[]models.BookingStatus{models.BookingPending}, models.BookingCancelled, nil)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", stale[i].ID).Error("Failed to expire booking")
			continue
		}
		if ok {
			expired++
			stale[i].Status = models.BookingCancelled
			s.publish(models.EventBookingCancelled, &stale[i], models.SystemSenderID)
		}
	}
	if expired > 0 {
		s.logger.WithField("count", expired).Info("Expired stale pending bookings")
	}
	return expired, nil
}

// CompleteFinished marks confirmed stays whose checkout day has come as
// completed.
func (s *Service) CompleteFinished(ctx context.Context) (int, error) {
	finished, err := s.db.FinishedBookings(ctx, dates.Today(s.now()))
	if err != nil {
		return 0, apperrors.Internal("failed to load finished bookings", err)
	}

	completed := 0
	for i := range finished {
		ok, err := s.db.TransitionBooking(ctx, finished[i].ID,
			[]models.BookingStatus{models.BookingConfirmed}, models.BookingCompleted, nil)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", finished[i].ID).Error("Failed to complete booking")
			continue
		}
		if ok {
			completed++
			finished[i].Status = models.BookingCompleted
			s.publish(models.EventBookingCompleted, &finished[i], models.SystemSenderID)
		}
	}
	if completed > 0 {
		s.logger.WithField("count", completed).Info("Completed finished stays")
	}
	return completed, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Booking, error) {
	booking, err := s.db.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrBookingNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load booking", err)
	}
	return booking, nil
}

func (s *Service) transition(ctx context.Context, booking *models.Booking, from []models.BookingStatus, to models.BookingStatus, actorID *uint, event models.EventType) (*models.Booking, error) {
	ok, err := s.db.TransitionBooking(ctx, booking.ID, from, to, actorID)
	if err != nil {
		return nil, apperrors.Internal("failed to update booking", err)
	}
	if !ok {
		return nil, apperrors.FailedPrecondition("booking cannot move from " + string(booking.Status) + " to " + string(to))
	}

	booking.Status = to
	if to == models.BookingCancelled {
		booking.CancelledBy = actorID
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"status":     to,
	}).Info("Booking status changed")

	var actor uint
	if actorID != nil {
		actor = *actorID
	}
	s.publish(event, booking, actor)
	return booking, nil
}

func (s *Service) publish(eventType models.EventType, booking *models.Booking, actorID uint) {
	if s.events == nil {
		return
	}
	err := s.events.Push(models.Event{
		Type:        eventType,
		ApartmentID: booking.ApartmentID,
		BookingID:   booking.ID,
		ActorID:     actorID,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish event")
	}
}
