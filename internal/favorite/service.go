// Package favorite keeps the apartments a user saved. Removal is a soft
// delete so the history of favoriting survives.
package favorite

import (
	"context"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewService(db *database.Database, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Add saves an apartment, re-activating an earlier removed favorite.
func (s *Service) Add(ctx context.Context, userID, apartmentID uint) (*models.Favorite, error) {
	if userID == 0 {
		return nil, apperrors.Unauthorized("user id is required")
	}
	apartment, err := s.db.GetApartment(ctx, apartmentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrApartmentNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load apartment", err)
	}
	if !apartment.Bookable() {
		return nil, apperrors.ErrApartmentNotFound
	}

	favorite, err := s.db.ActivateFavorite(ctx, userID, apartmentID)
	if err != nil {
		return nil, apperrors.Internal("failed to save favorite", err)
	}
	favorite.Apartment = apartment
	return favorite, nil
}

func (s *Service) Remove(ctx context.Context, userID, apartmentID uint) error {
	err := s.db.DeactivateFavorite(ctx, userID, apartmentID)
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound("favorite not found")
	}
	if err != nil {
		return apperrors.Internal("failed to remove favorite", err)
	}
	return nil
}

// List returns the active favorites with their apartments.
func (s *Service) List(ctx context.Context, userID uint) ([]models.Favorite, error) {
	favorites, err := s.db.ListActiveFavorites(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list favorites", err)
	}
	return favorites, nil
}

func (s *Service) IsFavorite(ctx context.Context, userID, apartmentID uint) (bool, error) {
	favorite, err := s.db.GetFavorite(ctx, userID, apartmentID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Internal("failed to load favorite", err)
	}
	return favorite.IsActive, nil
}
