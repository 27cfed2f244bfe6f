package chat

import (
	"context"
	"fmt"
	"time"

	"rentals/server/internal/database"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const notifyTimeout = 5 * time.Second

// BookingNotifier posts system messages about booking changes into the
// chat between the tenant and the host.
type BookingNotifier struct {
	db     *database.Database
	chats  *Service
	logger *logrus.Logger
}

func NewBookingNotifier(db *database.Database, chats *Service, logger *logrus.Logger) *BookingNotifier {
	return &BookingNotifier{db: db, chats: chats, logger: logger}
}

// Handle is an event queue subscriber. Non-booking events are ignored.
func (n *BookingNotifier) Handle(event models.Event) error {
	if event.BookingID == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	booking, err := n.db.GetBooking(ctx, event.BookingID)
	if err != nil {
		return errors.Wrap(err, "notifier.GetBooking")
	}
	text, ok := bookingMessage(event.Type, booking)
	if !ok {
		return nil
	}

	chat, _, err := n.db.FindOrCreateChat(ctx, booking.ApartmentID, booking.TenantID, booking.HostID)
	if err != nil {
		return errors.Wrap(err, "notifier.FindOrCreateChat")
	}
	if _, err := n.chats.PostSystemMessage(ctx, chat.ID, text); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"chat_id":    chat.ID,
		"event":      event.Type,
	}).Debug("Posted booking notification")
	return nil
}

func bookingMessage(eventType models.EventType, b *models.Booking) (string, bool) {
	stay := fmt.Sprintf("%s to %s", dates.Key(dates.Stored(b.StartDate)), dates.Key(dates.Stored(b.EndDate)))
	switch eventType {
	case models.EventBookingCreated:
		return fmt.Sprintf("Booking request for %s (%d nights, total %d) is waiting for the host.", stay, b.Nights, b.TotalPrice), true
	case models.EventBookingConfirmed:
		return fmt.Sprintf("Booking for %s was confirmed.", stay), true
	case models.EventBookingCancelled:
		return fmt.Sprintf("Booking for %s was cancelled.", stay), true
	case models.EventBookingCompleted:
		return fmt.Sprintf("Stay %s is complete. You can now leave a review.", stay), true
	}
	return "", false
}
