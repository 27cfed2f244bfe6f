package database

import (
	"context"

	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// ActivateFavorite creates the favorite or re-activates a removed one.
func (d *Database) ActivateFavorite(ctx context.Context, userID, apartmentID uint) (*models.Favorite, error) {
	favorite := models.Favorite{UserID: userID, ApartmentID: apartmentID, IsActive: true}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "apartment_id"}},
		DoUpdates: clause.Assignments(map[string]any{"is_active": true, "updated_at": NowUTC()}),
	}).Create(&favorite).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ActivateFavorite")
	}
	return d.GetFavorite(ctx, userID, apartmentID)
}

// DeactivateFavorite soft-deletes a favorite. Returns ErrNotFound when there
// is no active favorite for the pair.
func (d *Database) DeactivateFavorite(ctx context.Context, userID, apartmentID uint) error {
	res := d.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND apartment_id = ? AND is_active = ?", userID, apartmentID, true).
		Update("is_active", false)
	if res.Error != nil {
		return errors.Wrap(res.Error, "database.DeactivateFavorite")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) GetFavorite(ctx context.Context, userID, apartmentID uint) (*models.Favorite, error) {
	var favorite models.Favorite
	err := d.db.WithContext(ctx).
		Where("user_id = ? AND apartment_id = ?", userID, apartmentID).
		First(&favorite).Error
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "database.GetFavorite")
	}
	return &favorite, nil
}

func (d *Database) ListActiveFavorites(ctx context.Context, userID uint) ([]models.Favorite, error) {
	var favorites []models.Favorite
	err := d.db.WithContext(ctx).Preload("Apartment").
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC, id DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListActiveFavorites")
	}
	return favorites, nil
}
