package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingCompleted BookingStatus = "COMPLETED"
)

// ActiveBookingStatuses hold their nights; the others never participate in
// conflict checks.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

// Booking covers the half-open stay [StartDate, EndDate).
type Booking struct {
	ID          uint          `json:"id" gorm:"primaryKey"`
	Reference   string        `json:"reference" gorm:"size:36;not null;uniqueIndex"`
	ApartmentID uint          `json:"apartment_id" gorm:"not null;index:idx_booking_apartment_status"`
	TenantID    uint          `json:"tenant_id" gorm:"not null;index"`
	HostID      uint          `json:"host_id" gorm:"not null;index"`
	StartDate   time.Time     `json:"start_date" gorm:"not null"`
	EndDate     time.Time     `json:"end_date" gorm:"not null"`
	Nights      int           `json:"nights" gorm:"not null"`
	Guests      int           `json:"guests" gorm:"not null;default:1"`
	TotalPrice  int64         `json:"total_price" gorm:"not null"`
	Comment     string        `json:"comment,omitempty" gorm:"type:text"`
	Status      BookingStatus `json:"status" gorm:"type:varchar(16);not null;index:idx_booking_apartment_status"`
	CancelledBy *uint         `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
}

// BookedNight claims one night of an apartment for an active booking. The
// unique index on (apartment, night) lets storage reject a double booking
// even if two writers both passed the application-level check.
type BookedNight struct {
	ID          uint      `gorm:"primaryKey"`
	ApartmentID uint      `gorm:"not null;uniqueIndex:idx_booked_night"`
	Night       time.Time `gorm:"not null;uniqueIndex:idx_booked_night"`
	BookingID   uint      `gorm:"not null;index"`
}
