package models

import "time"

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

type Review struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	AuthorID    uint         `json:"author_id" gorm:"not null;index"`
	HostID      uint         `json:"host_id" gorm:"not null;index"`
	ApartmentID *uint        `json:"apartment_id,omitempty" gorm:"index"`
	ChatID      *uint        `json:"chat_id,omitempty"`
	Rating      int          `json:"rating" gorm:"not null"`
	Comment     string       `json:"comment" gorm:"type:text"`
	Status      ReviewStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	ModeratedBy *uint        `json:"moderated_by,omitempty"`
	ModeratedAt *time.Time   `json:"moderated_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// RatingStats aggregates approved reviews of one apartment.
type RatingStats struct {
	ApartmentID uint    `json:"apartment_id"`
	Average     float64 `json:"average"`
	Count       int64   `json:"count"`
}
