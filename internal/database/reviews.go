package database

import (
	"context"
	"time"

	"rentals/server/internal/models"

	"github.com/pkg/errors"
)

type ReviewFilter struct {
	HostID      uint
	ApartmentID uint
	Status      models.ReviewStatus
}

func (d *Database) CreateReview(ctx context.Context, review *models.Review) error {
	if err := d.db.WithContext(ctx).Create(review).Error; err != nil {
		return errors.Wrap(err, "database.CreateReview")
	}
	return nil
}

func (d *Database) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := d.db.WithContext(ctx).First(&review, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "database.GetReview")
	}
	return &review, nil
}

// ModerateReview sets the final status of a PENDING review. Returns false if
// the review had already left PENDING.
func (d *Database) ModerateReview(ctx context.Context, id uint, status models.ReviewStatus, adminID uint, at time.Time) (bool, error) {
	res := d.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND status = ?", id, models.ReviewPending).
		Updates(map[string]any{
			"status":       status,
			"moderated_by": adminID,
			"moderated_at": at,
		})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "database.ModerateReview")
	}
	return res.RowsAffected == 1, nil
}

func (d *Database) ListReviews(ctx context.Context, filter ReviewFilter) ([]models.Review, error) {
	q := d.db.WithContext(ctx).Model(&models.Review{})
	if filter.HostID != 0 {
		q = q.Where("host_id = ?", filter.HostID)
	}
	if filter.ApartmentID != 0 {
		q = q.Where("apartment_id = ?", filter.ApartmentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var reviews []models.Review
	if err := q.Order("created_at DESC, id DESC").Find(&reviews).Error; err != nil {
		return nil, errors.Wrap(err, "database.ListReviews")
	}
	return reviews, nil
}

// RatingStats aggregates approved reviews per apartment.
func (d *Database) RatingStats(ctx context.Context, apartmentIDs []uint) (map[uint]models.RatingStats, error) {
	stats := make(map[uint]models.RatingStats, len(apartmentIDs))
	if len(apartmentIDs) == 0 {
		return stats, nil
	}

	var rows []models.RatingStats
	err := d.db.WithContext(ctx).Model(&models.Review{}).
		Select("apartment_id, AVG(rating) AS average, COUNT(*) AS count").
		Where("apartment_id IN ? AND status = ?", apartmentIDs, models.ReviewApproved).
		Group("apartment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.RatingStats")
	}

	for _, row := range rows {
		stats[row.ApartmentID] = row
	}
	return stats, nil
}
