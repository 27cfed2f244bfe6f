package models

import (
	"time"

	"github.com/paulmach/orb"
	"gorm.io/datatypes"
)

type ListingStatus string

const (
	ListingPending  ListingStatus = "PENDING"
	ListingApproved ListingStatus = "APPROVED"
	ListingRejected ListingStatus = "REJECTED"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingPending, ListingApproved, ListingRejected:
		return true
	}
	return false
}

type Apartment struct {
	ID             uint                        `json:"id" gorm:"primaryKey"`
	HostID         uint                        `json:"host_id" gorm:"not null;index"`
	Title          string                      `json:"title" gorm:"not null"`
	Description    string                      `json:"description" gorm:"type:text"`
	Street         string                      `json:"street"`
	City           string                      `json:"city" gorm:"not null"`
	CitySlug       string                      `json:"city_slug" gorm:"index"`
	Country        string                      `json:"country"`
	Latitude       *float64                    `json:"latitude"`
	Longitude      *float64                    `json:"longitude"`
	BasePrice      int64                       `json:"base_price" gorm:"not null"`
	MinStay        int                         `json:"min_stay" gorm:"not null;default:1"`
	MaxGuests      int                         `json:"max_guests" gorm:"not null;default:1"`
	Rooms          int                         `json:"rooms" gorm:"not null;default:1"`
	Amenities      datatypes.JSONSlice[string] `json:"amenities"`
	Photos         datatypes.JSONSlice[string] `json:"photos"`
	Status         ListingStatus               `json:"status" gorm:"type:varchar(16);not null;index"`
	ModerationNote string                      `json:"moderation_note,omitempty"`
	IsPublished    bool                        `json:"is_published" gorm:"not null;default:false;index"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// Point returns the listing's coordinates, if known.
func (a *Apartment) Point() (orb.Point, bool) {
	if a.Latitude == nil || a.Longitude == nil {
		return orb.Point{}, false
	}
	return orb.Point{*a.Longitude, *a.Latitude}, true
}

// SetPoint stores coordinates from an orb point (lon, lat order).
func (a *Apartment) SetPoint(p orb.Point) {
	lon, lat := p.Lon(), p.Lat()
	a.Longitude = &lon
	a.Latitude = &lat
}

// Bookable reports whether tenants may request stays.
func (a *Apartment) Bookable() bool {
	return a.Status == ListingApproved && a.IsPublished
}

// PricingRule overrides an apartment's base price and/or blocks it for one
// calendar day. Date is always UTC midnight.
type PricingRule struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ApartmentID uint      `json:"apartment_id" gorm:"not null;uniqueIndex:idx_pricing_rule_day"`
	Date        time.Time `json:"date" gorm:"not null;uniqueIndex:idx_pricing_rule_day"`
	Price       int64     `json:"price"`
	Blocked     bool      `json:"blocked" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
