package models

import "time"

// Favorite is soft-deleted through IsActive so favoriting history survives.
type Favorite struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_favorite_user_apartment"`
	ApartmentID uint      `json:"apartment_id" gorm:"not null;uniqueIndex:idx_favorite_user_apartment"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
}
