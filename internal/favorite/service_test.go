package favorite

import (
	"context"
	"testing"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID uint = 42

func setupService(t *testing.T) (*Service, *database.Database, *models.Apartment) {
	t.Helper()
	db, err := database.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	apt := &models.Apartment{
		HostID: 7, Title: "Tram view", City: "Lisbon", CitySlug: "lisbon",
		BasePrice: 800, MinStay: 1, MaxGuests: 2, Rooms: 1,
		Status: models.ListingApproved, IsPublished: true,
	}
	require.NoError(t, db.CreateApartment(context.Background(), apt))
	return NewService(db, logrus.New()), db, apt
}

func TestFavoriteLifecycle(t *testing.T) {
	svc, db, apt := setupService(t)
	ctx := context.Background()

	fav, err := svc.Add(ctx, userID, apt.ID)
	require.NoError(t, err)
	assert.True(t, fav.IsActive)

	// Adding twice keeps a single row
	again, err := svc.Add(ctx, userID, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, fav.ID, again.ID)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Apartment)
	assert.Equal(t, "Tram view", list[0].Apartment.Title)

	require.NoError(t, svc.Remove(ctx, userID, apt.ID))
	err = svc.Remove(ctx, userID, apt.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	is, err := svc.IsFavorite(ctx, userID, apt.ID)
	require.NoError(t, err)
	assert.False(t, is)

	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The row survives the removal
	stored, err := db.GetFavorite(ctx, userID, apt.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	readded, err := svc.Add(ctx, userID, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, fav.ID, readded.ID)
	assert.True(t, readded.IsActive)
}

func TestAddUnknownApartment(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.Add(context.Background(), userID, 999)
	assert.ErrorIs(t, err, apperrors.ErrApartmentNotFound)

	is, err := svc.IsFavorite(context.Background(), userID, 999)
	require.NoError(t, err)
	assert.False(t, is)
}
