// Package chat implements tenant-host conversations about an apartment,
// their read state and the typing indicator.
package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxMessageLength = 4000

type Service struct {
	db     *database.Database
	typing TypingStore
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(db *database.Database, typing TypingStore, logger *logrus.Logger) *Service {
	return &Service{db: db, typing: typing, logger: logger, now: time.Now}
}

// Conversation is an opened chat with its full history.
type Conversation struct {
	Chat     *models.Chat     `json:"chat"`
	Messages []models.Message `json:"messages"`
}

// Start returns the tenant's chat about an apartment, creating it on first
// contact.
func (s *Service) Start(ctx context.Context, apartmentID, tenantID uint) (*models.Chat, error) {
	if tenantID == 0 {
		return nil, apperrors.Unauthorized("user id is required")
	}
	apartment, err := s.db.GetApartment(ctx, apartmentID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrApartmentNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load apartment", err)
	}
	if !apartment.Bookable() {
		return nil, apperrors.ErrApartmentNotFound
	}
	if apartment.HostID == tenantID {
		return nil, apperrors.InvalidArg("hosts cannot start a chat about their own apartment")
	}

	chat, created, err := s.db.FindOrCreateChat(ctx, apartment.ID, tenantID, apartment.HostID)
	if err != nil {
		return nil, apperrors.Internal("failed to start chat", err)
	}
	if created {
		s.logger.WithFields(logrus.Fields{
			"chat_id":      chat.ID,
			"apartment_id": apartment.ID,
		}).Info("Chat started")
	}
	chat.Apartment = apartment
	return chat, nil
}

// Send appends a message from a participant and clears their typing flag.
func (s *Service) Send(ctx context.Context, chatID, senderID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.InvalidArg("message cannot be empty")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, apperrors.InvalidArgf("message exceeds %d characters", maxMessageLength)
	}
	if _, err := s.participantChat(ctx, chatID, senderID); err != nil {
		return nil, err
	}

	message, err := s.append(ctx, chatID, senderID, content)
	if err != nil {
		return nil, err
	}
	if err := s.typing.Clear(ctx, chatID, senderID); err != nil {
		s.logger.WithError(err).Warn("Failed to clear typing flag")
	}
	return message, nil
}

// PostSystemMessage appends a platform message to a chat.
func (s *Service) PostSystemMessage(ctx context.Context, chatID uint, content string) (*models.Message, error) {
	return s.append(ctx, chatID, models.SystemSenderID, content)
}

func (s *Service) append(ctx context.Context, chatID, senderID uint, content string) (*models.Message, error) {
	message := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.db.AppendMessage(ctx, message); err != nil {
		return nil, apperrors.Internal("failed to send message", err)
	}
	return message, nil
}

// Open returns the history of a chat and marks everything the viewer
// received as read.
func (s *Service) Open(ctx context.Context, chatID, viewerID uint) (*Conversation, error) {
	chat, err := s.participantChat(ctx, chatID, viewerID)
	if err != nil {
		return nil, err
	}

	marked, err := s.db.MarkRead(ctx, chatID, viewerID)
	if err != nil {
		return nil, apperrors.Internal("failed to mark messages read", err)
	}
	messages, err := s.db.ListMessages(ctx, chatID)
	if err != nil {
		return nil, apperrors.Internal("failed to load messages", err)
	}

	if marked > 0 {
		s.logger.WithFields(logrus.Fields{
			"chat_id": chatID,
			"count":   marked,
		}).Debug("Marked messages read")
	}
	return &Conversation{Chat: chat, Messages: messages}, nil
}

// List returns the user's chats, most recently active first.
func (s *Service) List(ctx context.Context, userID uint) ([]models.Chat, error) {
	chats, err := s.db.ListChatsForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to list chats", err)
	}
	return chats, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.db.UnreadCount(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal("failed to count unread messages", err)
	}
	return count, nil
}

func (s *Service) SetTyping(ctx context.Context, chatID, userID uint) error {
	if _, err := s.participantChat(ctx, chatID, userID); err != nil {
		return err
	}
	if err := s.typing.Set(ctx, chatID, userID); err != nil {
		return apperrors.Internal("failed to store typing state", err)
	}
	return nil
}

// CounterpartTyping reports whether the other participant is typing.
func (s *Service) CounterpartTyping(ctx context.Context, chatID, viewerID uint) (bool, error) {
	chat, err := s.participantChat(ctx, chatID, viewerID)
	if err != nil {
		return false, err
	}
	typing, err := s.typing.IsTyping(ctx, chatID, chat.Counterpart(viewerID))
	if err != nil {
		return false, apperrors.Internal("failed to read typing state", err)
	}
	return typing, nil
}

func (s *Service) participantChat(ctx context.Context, chatID, userID uint) (*models.Chat, error) {
	chat, err := s.db.GetChat(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrChatNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load chat", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return chat, nil
}
