package database

import (
	"context"
	"time"

	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

// PricingRules returns the rules of an apartment with from <= date < to,
// ordered by date. A zero to means no upper bound.
func (d *Database) PricingRules(ctx context.Context, apartmentID uint, from, to time.Time) ([]models.PricingRule, error) {
	q := d.db.WithContext(ctx).Where("apartment_id = ? AND date >= ?", apartmentID, from)
	if !to.IsZero() {
		q = q.Where("date < ?", to)
	}

	var rules []models.PricingRule
	if err := q.Order("date ASC").Find(&rules).Error; err != nil {
		return nil, errors.Wrap(err, "database.PricingRules")
	}
	return rules, nil
}

// UpsertPricingRules inserts rules, replacing price and blocked flag of any
// rule that already exists for the same apartment and day.
func (d *Database) UpsertPricingRules(ctx context.Context, rules []models.PricingRule) error {
	if len(rules) == 0 {
		return nil
	}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "apartment_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"price", "blocked", "updated_at"}),
	}).Create(&rules).Error
	if err != nil {
		return errors.Wrap(err, "database.UpsertPricingRules")
	}
	return nil
}

func (d *Database) DeletePricingRule(ctx context.Context, apartmentID uint, day time.Time) error {
	res := d.db.WithContext(ctx).
		Where("apartment_id = ? AND date = ?", apartmentID, day).
		Delete(&models.PricingRule{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "database.DeletePricingRule")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
