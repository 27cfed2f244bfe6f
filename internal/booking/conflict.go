package booking

import (
	"time"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"
)

// Overlaps reports whether the half-open ranges [s1, e1) and [s2, e2)
// share at least one night. Touching ranges do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ValidateRange rejects empty and inverted stays.
func ValidateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.InvalidArg("check-in and check-out are required")
	}
	if !dates.Day(start).Before(dates.Day(end)) {
		return apperrors.ErrInvalidRange
	}
	return nil
}

// HasConflict tests [start, end) against every active booking. Cancelled
// and completed bookings are ignored.
func HasConflict(start, end time.Time, bookings []models.Booking) bool {
	start, end = dates.Day(start), dates.Day(end)
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		if Overlaps(start, end, dates.Stored(b.StartDate), dates.Stored(b.EndDate)) {
			return true
		}
	}
	return false
}
