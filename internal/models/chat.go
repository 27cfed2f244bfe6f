package models

import "time"

// SystemSenderID marks messages posted by the platform itself.
const SystemSenderID uint = 0

type Chat struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	ApartmentID   uint       `json:"apartment_id" gorm:"not null;uniqueIndex:idx_chat_participants"`
	TenantID      uint       `json:"tenant_id" gorm:"not null;uniqueIndex:idx_chat_participants;index"`
	HostID        uint       `json:"host_id" gorm:"not null;uniqueIndex:idx_chat_participants;index"`
	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`

	Apartment *Apartment `json:"apartment,omitempty" gorm:"foreignKey:ApartmentID"`
}

func (c *Chat) HasParticipant(userID uint) bool {
	return userID != 0 && (c.TenantID == userID || c.HostID == userID)
}

// Counterpart returns the other participant.
func (c *Chat) Counterpart(userID uint) uint {
	if c.TenantID == userID {
		return c.HostID
	}
	return c.TenantID
}

type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ChatID    uint      `json:"chat_id" gorm:"not null;index:idx_message_chat_created"`
	SenderID  uint      `json:"sender_id" gorm:"not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_message_chat_created"`
}

func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
