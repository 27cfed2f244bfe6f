package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"rentals/server/internal/models"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
}

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedApartment(t *testing.T, db *Database, hostID uint) *models.Apartment {
	t.Helper()
	apt := &models.Apartment{
		HostID: hostID, Title: "Harbour flat", City: "Rotterdam", CitySlug: "rotterdam",
		BasePrice: 1200, MinStay: 1, MaxGuests: 3, Rooms: 1,
		Status: models.ListingApproved, IsPublished: true,
	}
	require.NoError(t, db.CreateApartment(context.Background(), apt))
	return apt
}

func newBooking(apt *models.Apartment, ref string, in, out int) *models.Booking {
	return &models.Booking{
		Reference:   ref,
		ApartmentID: apt.ID,
		TenantID:    50,
		HostID:      apt.HostID,
		StartDate:   day(in),
		EndDate:     day(out),
		Nights:      out - in,
		Guests:      1,
		TotalPrice:  int64(out-in) * apt.BasePrice,
		Status:      models.BookingPending,
	}
}

func TestBookedNightsAreUnique(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	apt := seedApartment(t, db, 1)

	require.NoError(t, db.CreateBooking(ctx, newBooking(apt, "a", 10, 13)))

	err := db.CreateBooking(ctx, newBooking(apt, "b", 12, 14))
	assert.ErrorIs(t, err, ErrNightTaken)

	// the failed insert rolled back with its booking row
	bookings, err := db.ActiveBookings(ctx, apt.ID, day(1))
	require.NoError(t, err)
	assert.Len(t, bookings, 1)

	require.NoError(t, db.CreateBooking(ctx, newBooking(apt, "c", 13, 15)))

	nights, err := db.BookedNights(ctx, apt.ID, day(1))
	require.NoError(t, err)
	assert.Len(t, nights, 5)
}

func TestTransitionReleasesNights(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	apt := seedApartment(t, db, 1)

	b := newBooking(apt, "a", 10, 12)
	require.NoError(t, db.CreateBooking(ctx, b))

	changed, err := db.TransitionBooking(ctx, b.ID, []models.BookingStatus{models.BookingConfirmed}, models.BookingCompleted, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = db.TransitionBooking(ctx, b.ID, []models.BookingStatus{models.BookingPending}, models.BookingConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	nights, err := db.BookedNights(ctx, apt.ID, day(1))
	require.NoError(t, err)
	assert.Len(t, nights, 2)

	actor := uint(50)
	changed, err = db.TransitionBooking(ctx, b.ID, models.ActiveBookingStatuses, models.BookingCancelled, &actor)
	require.NoError(t, err)
	assert.True(t, changed)

	nights, err = db.BookedNights(ctx, apt.ID, day(1))
	require.NoError(t, err)
	assert.Empty(t, nights)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, actor, *got.CancelledBy)

	// freed nights can be booked again
	require.NoError(t, db.CreateBooking(ctx, newBooking(apt, "b", 10, 12)))
}

func TestWithApartmentLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	apt := seedApartment(t, db, 1)

	err := db.WithApartmentLock(ctx, 9999, func(tx *Database) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)

	// an error from fn rolls everything back
	boom := errors.New("boom")
	err = db.WithApartmentLock(ctx, apt.ID, func(tx *Database) error {
		require.NoError(t, tx.CreateBooking(ctx, newBooking(apt, "a", 1, 3)))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	bookings, err := db.ActiveBookings(ctx, apt.ID, day(1))
	require.NoError(t, err)
	assert.Empty(t, bookings)

	// serialized check-then-insert admits exactly one of the overlapping writers
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := db.WithApartmentLock(ctx, apt.ID, func(tx *Database) error {
				existing, err := tx.ActiveBookings(ctx, apt.ID, day(1))
				if err != nil {
					return err
				}
				if len(existing) > 0 {
					return ErrNightTaken
				}
				return tx.CreateBooking(ctx, newBooking(apt, string(rune('a'+i)), 5, 8))
			})
			if err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.Wrap(sqlite3.Error{Code: sqlite3.ErrBusy}, "insert")))
	assert.True(t, IsRetryable(sqlite3.Error{Code: sqlite3.ErrLocked}))
	assert.False(t, IsRetryable(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsRetryable(ErrNightTaken))
	assert.False(t, IsRetryable(nil))
}

func TestFindOrCreateChat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	apt := seedApartment(t, db, 1)

	first, created, err := db.FindOrCreateChat(ctx, apt.ID, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := db.FindOrCreateChat(ctx, apt.ID, 2, 1)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, db.AppendMessage(ctx, &models.Message{ChatID: first.ID, SenderID: 2, Content: "hi"}))
	require.NoError(t, db.AppendMessage(ctx, &models.Message{ChatID: first.ID, SenderID: 2, Content: "anyone?"}))

	unread, err := db.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	marked, err := db.MarkRead(ctx, first.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	unread, err = db.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, unread)

	chat, err := db.GetChat(ctx, first.ID)
	require.NoError(t, err)
	assert.NotNil(t, chat.LastMessageAt)
}

func TestFavoritesToggle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	apt := seedApartment(t, db, 1)

	fav, err := db.ActivateFavorite(ctx, 2, apt.ID)
	require.NoError(t, err)
	assert.True(t, fav.IsActive)

	again, err := db.ActivateFavorite(ctx, 2, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, fav.ID, again.ID)

	require.NoError(t, db.DeactivateFavorite(ctx, 2, apt.ID))
	assert.ErrorIs(t, db.DeactivateFavorite(ctx, 2, apt.ID), ErrNotFound)

	list, err := db.ListActiveFavorites(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = db.ActivateFavorite(ctx, 2, apt.ID)
	require.NoError(t, err)
	list, err = db.ListActiveFavorites(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase("oracle", "x", nil)
	assert.Error(t, err)
}
