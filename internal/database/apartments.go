package database

import (
	"context"
	"strings"
	"time"

	"rentals/server/internal/models"

	"github.com/pkg/errors"
)

// ApartmentFilter holds the search criteria that can be pushed down to SQL.
type ApartmentFilter struct {
	CitySlug  string
	MinPrice  int64
	MaxPrice  int64
	MinGuests int
	MinRooms  int
	Text      string
}

func (d *Database) CreateApartment(ctx context.Context, apartment *models.Apartment) error {
	if err := d.db.WithContext(ctx).Create(apartment).Error; err != nil {
		return errors.Wrap(err, "database.CreateApartment")
	}
	return nil
}

func (d *Database) GetApartment(ctx context.Context, id uint) (*models.Apartment, error) {
	var apartment models.Apartment
	if err := d.db.WithContext(ctx).First(&apartment, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "database.GetApartment")
	}
	return &apartment, nil
}

func (d *Database) SaveApartment(ctx context.Context, apartment *models.Apartment) error {
	if err := d.db.WithContext(ctx).Save(apartment).Error; err != nil {
		return errors.Wrap(err, "database.SaveApartment")
	}
	return nil
}

// UpdateApartmentFields applies a partial update; zero values in fields are
// written as-is.
func (d *Database) UpdateApartmentFields(ctx context.Context, id uint, fields map[string]any) error {
	res := d.db.WithContext(ctx).Model(&models.Apartment{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, "database.UpdateApartmentFields")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Database) ListApartmentsByHost(ctx context.Context, hostID uint) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := d.db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC, id DESC").
		Find(&apartments).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListApartmentsByHost")
	}
	return apartments, nil
}

func (d *Database) ListApartmentsByStatus(ctx context.Context, status models.ListingStatus) ([]models.Apartment, error) {
	var apartments []models.Apartment
	err := d.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Find(&apartments).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListApartmentsByStatus")
	}
	return apartments, nil
}

// SearchApartments returns approved, published listings matching filter.
func (d *Database) SearchApartments(ctx context.Context, filter ApartmentFilter) ([]models.Apartment, error) {
	q := d.db.WithContext(ctx).Model(&models.Apartment{}).
		Where("status = ? AND is_published = ?", models.ListingApproved, true)

	if filter.CitySlug != "" {
		q = q.Where("city_slug = ?", filter.CitySlug)
	}
	if filter.MinPrice > 0 {
		q = q.Where("base_price >= ?", filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		q = q.Where("base_price <= ?", filter.MaxPrice)
	}
	if filter.MinGuests > 0 {
		q = q.Where("max_guests >= ?", filter.MinGuests)
	}
	if filter.MinRooms > 0 {
		q = q.Where("rooms >= ?", filter.MinRooms)
	}
	if text := strings.TrimSpace(filter.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		q = q.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}

	var apartments []models.Apartment
	if err := q.Order("id ASC").Find(&apartments).Error; err != nil {
		return nil, errors.Wrap(err, "database.SearchApartments")
	}
	return apartments, nil
}

// UnavailableApartments returns the ids among apartmentIDs that have a booked
// night or a blocked day inside [from, to).
func (d *Database) UnavailableApartments(ctx context.Context, apartmentIDs []uint, from, to time.Time) (map[uint]bool, error) {
	unavailable := make(map[uint]bool)
	if len(apartmentIDs) == 0 {
		return unavailable, nil
	}

	var booked []uint
	err := d.db.WithContext(ctx).Model(&models.BookedNight{}).
		Distinct("apartment_id").
		Where("apartment_id IN ? AND night >= ? AND night < ?", apartmentIDs, from, to).
		Pluck("apartment_id", &booked).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.UnavailableApartments.Booked")
	}

	var blocked []uint
	err = d.db.WithContext(ctx).Model(&models.PricingRule{}).
		Distinct("apartment_id").
		Where("apartment_id IN ? AND date >= ? AND date < ? AND blocked = ?", apartmentIDs, from, to, true).
		Pluck("apartment_id", &blocked).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.UnavailableApartments.Blocked")
	}

	for _, id := range booked {
		unavailable[id] = true
	}
	for _, id := range blocked {
		unavailable[id] = true
	}
	return unavailable, nil
}
