// Package review handles host reviews and their one-way moderation.
package review

import (
	"context"
	"strings"
	"time"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/models"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxCommentLength = 2000

type Publisher interface {
	Push(event models.Event) error
}

type Service struct {
	db     *database.Database
	events Publisher
	logger *logrus.Logger
	now    func() time.Time
}

func NewService(db *database.Database, events Publisher, logger *logrus.Logger) *Service {
	return &Service{db: db, events: events, logger: logger, now: time.Now}
}

type Input struct {
	HostID      uint   `json:"host_id" binding:"required"`
	ApartmentID *uint  `json:"apartment_id"`
	ChatID      *uint  `json:"chat_id"`
	Rating      int    `json:"rating" binding:"required,min=1,max=5"`
	Comment     string `json:"comment" binding:"max=2000"`
}

// Create stores a review awaiting moderation.
func (s *Service) Create(ctx context.Context, authorID uint, in Input) (*models.Review, error) {
	if authorID == 0 {
		return nil, apperrors.Unauthorized("user id is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperrors.InvalidArg("rating must be between 1 and 5")
	}
	if in.HostID == 0 {
		return nil, apperrors.InvalidArg("host is required")
	}
	if in.HostID == authorID {
		return nil, apperrors.InvalidArg("hosts cannot review themselves")
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if len([]rune(in.Comment)) > maxCommentLength {
		return nil, apperrors.InvalidArgf("comment exceeds %d characters", maxCommentLength)
	}

	if in.ApartmentID != nil {
		apartment, err := s.db.GetApartment(ctx, *in.ApartmentID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.ErrApartmentNotFound
		}
		if err != nil {
			return nil, apperrors.Internal("failed to load apartment", err)
		}
		if apartment.HostID != in.HostID {
			return nil, apperrors.InvalidArg("apartment does not belong to this host")
		}
	}
	if in.ChatID != nil {
		chat, err := s.db.GetChat(ctx, *in.ChatID)
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.ErrChatNotFound
		}
		if err != nil {
			return nil, apperrors.Internal("failed to load chat", err)
		}
		if !chat.HasParticipant(authorID) || chat.HostID != in.HostID {
			return nil, apperrors.ErrNotParticipant
		}
	}

	review := &models.Review{
		AuthorID:    authorID,
		HostID:      in.HostID,
		ApartmentID: in.ApartmentID,
		ChatID:      in.ChatID,
		Rating:      in.Rating,
		Comment:     in.Comment,
		Status:      models.ReviewPending,
	}
	if err := s.db.CreateReview(ctx, review); err != nil {
		return nil, apperrors.Internal("failed to create review", err)
	}

	s.logger.WithFields(logrus.Fields{
		"review_id": review.ID,
		"host_id":   review.HostID,
	}).Info("Review submitted for moderation")
	s.publish(models.EventReviewSubmitted, review.ID, authorID)
	return review, nil
}

// Moderate approves or rejects a pending review. Decisions are final.
func (s *Service) Moderate(ctx context.Context, id, adminID uint, status models.ReviewStatus) (*models.Review, error) {
	if status != models.ReviewApproved && status != models.ReviewRejected {
		return nil, apperrors.InvalidArgf("moderation status must be %s or %s", models.ReviewApproved, models.ReviewRejected)
	}

	review, err := s.db.GetReview(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrReviewNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load review", err)
	}

	at := s.now().UTC()
	ok, err := s.db.ModerateReview(ctx, id, status, adminID, at)
	if err != nil {
		return nil, apperrors.Internal("failed to moderate review", err)
	}
	if !ok {
		return nil, apperrors.FailedPrecondition("review was already moderated")
	}

	review.Status = status
	review.ModeratedBy = &adminID
	review.ModeratedAt = &at

	s.publish(models.EventReviewModerated, id, adminID)
	return review, nil
}

func (s *Service) publish(eventType models.EventType, reviewID, actorID uint) {
	if s.events == nil {
		return
	}
	err := s.events.Push(models.Event{
		Type:       eventType,
		ReviewID:   reviewID,
		ActorID:    actorID,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish event")
	}
}

// ListForHost returns the approved reviews of a host.
func (s *Service) ListForHost(ctx context.Context, hostID uint) ([]models.Review, error) {
	return s.list(ctx, database.ReviewFilter{HostID: hostID, Status: models.ReviewApproved})
}

// ListForApartment returns the approved reviews of an apartment.
func (s *Service) ListForApartment(ctx context.Context, apartmentID uint) ([]models.Review, error) {
	return s.list(ctx, database.ReviewFilter{ApartmentID: apartmentID, Status: models.ReviewApproved})
}

// ListPending returns the moderation queue.
func (s *Service) ListPending(ctx context.Context) ([]models.Review, error) {
	return s.list(ctx, database.ReviewFilter{Status: models.ReviewPending})
}

// Stats aggregates approved ratings per apartment.
func (s *Service) Stats(ctx context.Context, apartmentIDs []uint) (map[uint]models.RatingStats, error) {
	stats, err := s.db.RatingStats(ctx, apartmentIDs)
	if err != nil {
		return nil, apperrors.Internal("failed to load ratings", err)
	}
	return stats, nil
}

func (s *Service) list(ctx context.Context, filter database.ReviewFilter) ([]models.Review, error) {
	reviews, err := s.db.ListReviews(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal("failed to list reviews", err)
	}
	return reviews, nil
}
