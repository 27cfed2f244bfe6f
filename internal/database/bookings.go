package database

import (
	"context"
	"time"

	"rentals/server/internal/dates"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ActiveBookings returns the PENDING and CONFIRMED bookings of an apartment
// that end after from. A zero from returns all of them.
func (d *Database) ActiveBookings(ctx context.Context, apartmentID uint, from time.Time) ([]models.Booking, error) {
	q := d.db.WithContext(ctx).
		Where("apartment_id = ? AND status IN ?", apartmentID, models.ActiveBookingStatuses)
	if !from.IsZero() {
		q = q.Where("end_date > ?", from)
	}

	var bookings []models.Booking
	if err := q.Order("start_date ASC").Find(&bookings).Error; err != nil {
		return nil, errors.Wrap(err, "database.ActiveBookings")
	}
	return bookings, nil
}

// CreateBooking inserts the booking and claims each of its nights. A night
// that is already claimed yields ErrNightTaken and nothing is written.
func (d *Database) CreateBooking(ctx context.Context, booking *models.Booking) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(booking).Error; err != nil {
			return errors.Wrap(err, "database.CreateBooking.Insert")
		}

		days := dates.Span(dates.Stored(booking.StartDate), dates.Stored(booking.EndDate))
		nights := make([]models.BookedNight, 0, len(days))
		for _, day := range days {
			nights = append(nights, models.BookedNight{
				ApartmentID: booking.ApartmentID,
				Night:       day,
				BookingID:   booking.ID,
			})
		}
		if len(nights) == 0 {
			return nil
		}
		if err := tx.Create(&nights).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrNightTaken
			}
			return errors.Wrap(err, "database.CreateBooking.Nights")
		}
		return nil
	})
}

func (d *Database) GetBooking(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := d.db.WithContext(ctx).Preload("Apartment").First(&booking, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "database.GetBooking")
	}
	return &booking, nil
}

// TransitionBooking moves a booking to status when it is currently in one of
// from. Leaving the active set releases the booked nights. Returns false when
// the booking was not in an allowed state.
func (d *Database) TransitionBooking(ctx context.Context, id uint, from []models.BookingStatus, to models.BookingStatus, actorID *uint) (bool, error) {
	var changed bool
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := map[string]any{"status": to}
		if to == models.BookingCancelled && actorID != nil {
			fields["cancelled_by"] = *actorID
		}

		res := tx.Model(&models.Booking{}).
			Where("id = ? AND status IN ?", id, from).
			Updates(fields)
		if res.Error != nil {
			return errors.Wrap(res.Error, "database.TransitionBooking.Update")
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true

		if !to.Active() {
			if err := tx.Where("booking_id = ?", id).Delete(&models.BookedNight{}).Error; err != nil {
				return errors.Wrap(err, "database.TransitionBooking.Release")
			}
		}
		return nil
	})
	return changed, err
}

func (d *Database) ListBookingsByTenant(ctx context.Context, tenantID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.db.WithContext(ctx).Preload("Apartment").
		Where("tenant_id = ?", tenantID).
		Order("start_date DESC, id DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListBookingsByTenant")
	}
	return bookings, nil
}

func (d *Database) ListBookingsByHost(ctx context.Context, hostID uint, status models.BookingStatus) ([]models.Booking, error) {
	q := d.db.WithContext(ctx).Preload("Apartment").Where("host_id = ?", hostID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var bookings []models.Booking
	if err := q.Order("start_date ASC, id ASC").Find(&bookings).Error; err != nil {
		return nil, errors.Wrap(err, "database.ListBookingsByHost")
	}
	return bookings, nil
}

// StalePendingBookings returns PENDING bookings created before cutoff.
func (d *Database) StalePendingBookings(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.BookingPending, cutoff).
		Find(&bookings).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.StalePendingBookings")
	}
	return bookings, nil
}

// FinishedBookings returns CONFIRMED bookings whose checkout day is on or
// before today.
func (d *Database) FinishedBookings(ctx context.Context, today time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", models.BookingConfirmed, today).
		Find(&bookings).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.FinishedBookings")
	}
	return bookings, nil
}

// BookedNights returns the claimed nights of an apartment from a day on.
func (d *Database) BookedNights(ctx context.Context, apartmentID uint, from time.Time) ([]time.Time, error) {
	var nights []time.Time
	err := d.db.WithContext(ctx).Model(&models.BookedNight{}).
		Where("apartment_id = ? AND night >= ?", apartmentID, from).
		Order("night ASC").
		Pluck("night", &nights).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.BookedNights")
	}
	return nights, nil
}
