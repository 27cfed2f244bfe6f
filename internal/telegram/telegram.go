// Package telegram alerts the moderation team in a Telegram chat when a
// listing or review starts waiting for review.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"rentals/server/internal/database"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIURL = "https://api.telegram.org"

	maxPreview = 200
)

type Options struct {
	BotToken string
	ChatID   string
	APIURL   string
	Timeout  time.Duration
}

type Service struct {
	logger *logrus.Logger
	client *http.Client
	opts   Options
	db     *database.Database
}

func NewService(db *database.Database, opts Options, logger *logrus.Logger) *Service {
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Service{
		logger: logger,
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		db:     db,
	}
}

// Enabled reports whether a bot token and chat are configured.
func (s *Service) Enabled() bool {
	return s.opts.BotToken != "" && s.opts.ChatID != ""
}

// SendMessage posts an HTML message to the configured chat.
func (s *Service) SendMessage(ctx context.Context, message string) error {
	if !s.Enabled() {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.opts.APIURL, "/"), s.opts.BotToken)
	payload := map[string]interface{}{
		"chat_id":                  s.opts.ChatID,
		"text":                     message,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send message to Telegram API")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusNotFound:
			return errors.New("invalid bot token")
		case http.StatusBadRequest:
			return errors.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was removed from the chat")
		default:
			return errors.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}
	return nil
}

// Handle is an event queue subscriber for submissions that need moderation.
func (s *Service) Handle(event models.Event) error {
	if !s.Enabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	var (
		message string
		err     error
	)
	switch event.Type {
	case models.EventListingSubmitted:
		message, err = s.listingMessage(ctx, event.ApartmentID)
	case models.EventReviewSubmitted:
		message, err = s.reviewMessage(ctx, event.ReviewID)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.SendMessage(ctx, message); err != nil {
		return errors.Wrapf(err, "telegram.Handle %s", event.Type)
	}
	s.logger.WithField("event", event.Type).Debug("Sent moderation alert")
	return nil
}

func (s *Service) listingMessage(ctx context.Context, apartmentID uint) (string, error) {
	apartment, err := s.db.GetApartment(ctx, apartmentID)
	if err != nil {
		return "", errors.Wrap(err, "telegram.GetApartment")
	}
	return fmt.Sprintf(
		"<b>Listing awaiting moderation</b>\n\n"+
			"🏠 %s\n"+
			"📍 %s\n"+
			"💰 %d per night\n"+
			"🚪 Rooms: %d, guests: %d\n"+
			"🆔 #%d (host %d)",
		html.EscapeString(apartment.Title),
		html.EscapeString(apartment.City),
		apartment.BasePrice,
		apartment.Rooms,
		apartment.MaxGuests,
		apartment.ID,
		apartment.HostID,
	), nil
}

func (s *Service) reviewMessage(ctx context.Context, reviewID uint) (string, error) {
	review, err := s.db.GetReview(ctx, reviewID)
	if err != nil {
		return "", errors.Wrap(err, "telegram.GetReview")
	}
	comment := []rune(review.Comment)
	if len(comment) > maxPreview {
		comment = append(comment[:maxPreview], '…')
	}
	return fmt.Sprintf(
		"<b>Review awaiting moderation</b>\n\n"+
			"⭐ %d/5 for host %d\n"+
			"💬 %s\n"+
			"🆔 #%d",
		review.Rating,
		review.HostID,
		html.EscapeString(string(comment)),
		review.ID,
	), nil
}
