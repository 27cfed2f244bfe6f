package database

import (
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MigrateSchema creates or updates every table the marketplace uses.
func MigrateSchema(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Apartment{},
		&models.PricingRule{},
		&models.Booking{},
		&models.BookedNight{},
		&models.Chat{},
		&models.Message{},
		&models.Review{},
		&models.Favorite{},
	)
	if err != nil {
		return errors.Wrap(err, "database.MigrateSchema")
	}

	// Spatial lookups filter on both columns
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_apartments_coordinates
		ON apartments(latitude, longitude)
	`).Error; err != nil {
		return errors.Wrap(err, "database.MigrateSchema.CoordinatesIndex")
	}

	return nil
}

func (d *Database) Migrate() error {
	return MigrateSchema(d.db)
}
