package database

import (
	"context"
	"time"

	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// FindOrCreateChat loads the chat for the (apartment, tenant, host) triple,
// creating it when missing. A concurrent creator losing the unique index race
// falls back to reading the winner's row.
func (d *Database) FindOrCreateChat(ctx context.Context, apartmentID, tenantID, hostID uint) (*models.Chat, bool, error) {
	chat := models.Chat{ApartmentID: apartmentID, TenantID: tenantID, HostID: hostID}
	where := "apartment_id = ? AND tenant_id = ? AND host_id = ?"

	err := d.db.WithContext(ctx).Where(where, apartmentID, tenantID, hostID).First(&chat).Error
	if err == nil {
		return &chat, false, nil
	}
	if !notFound(err) {
		return nil, false, errors.Wrap(err, "database.FindOrCreateChat.Find")
	}

	if err := d.db.WithContext(ctx).Create(&chat).Error; err != nil {
		if !isUniqueViolation(err) {
			return nil, false, errors.Wrap(err, "database.FindOrCreateChat.Create")
		}
		chat = models.Chat{}
		if err := d.db.WithContext(ctx).Where(where, apartmentID, tenantID, hostID).First(&chat).Error; err != nil {
			return nil, false, errors.Wrap(err, "database.FindOrCreateChat.Reload")
		}
		return &chat, false, nil
	}
	return &chat, true, nil
}

func (d *Database) GetChat(ctx context.Context, id uint) (*models.Chat, error) {
	var chat models.Chat
	if err := d.db.WithContext(ctx).Preload("Apartment").First(&chat, id).Error; err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "database.GetChat")
	}
	return &chat, nil
}

func (d *Database) ListChatsForUser(ctx context.Context, userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := d.db.WithContext(ctx).Preload("Apartment").
		Where("tenant_id = ? OR host_id = ?", userID, userID).
		Order("COALESCE(last_message_at, created_at) DESC").
		Find(&chats).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListChatsForUser")
	}
	return chats, nil
}

// AppendMessage stores a message and bumps the chat's last activity.
func (d *Database) AppendMessage(ctx context.Context, message *models.Message) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return errors.Wrap(err, "database.AppendMessage.Insert")
		}
		err := tx.Model(&models.Chat{}).
			Where("id = ?", message.ChatID).
			Update("last_message_at", message.CreatedAt).Error
		if err != nil {
			return errors.Wrap(err, "database.AppendMessage.Touch")
		}
		return nil
	})
}

// ListMessages returns a chat's messages in creation order.
func (d *Database) ListMessages(ctx context.Context, chatID uint) ([]models.Message, error) {
	var messages []models.Message
	err := d.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, errors.Wrap(err, "database.ListMessages")
	}
	return messages, nil
}

// MarkRead flips every unread message of the chat not sent by readerID.
func (d *Database) MarkRead(ctx context.Context, chatID, readerID uint) (int64, error) {
	res := d.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "database.MarkRead")
	}
	return res.RowsAffected, nil
}

// UnreadCount counts unread messages addressed to userID across all chats.
func (d *Database) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("(chats.tenant_id = ? OR chats.host_id = ?) AND messages.sender_id <> ? AND messages.is_read = ?",
			userID, userID, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "database.UnreadCount")
	}
	return count, nil
}

// NowUTC is the timestamp used for rows written outside gorm's hooks.
func NowUTC() time.Time {
	return time.Now().UTC()
}
