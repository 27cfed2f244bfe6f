// Package listing manages apartments: submission, moderation, publication,
// per-day pricing rules and search.
package listing

import (
	"context"
	"strings"
	"time"

	"rentals/server/config"
	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Geocoder interface {
	Geocode(ctx context.Context, address string) (orb.Point, error)
}

type Publisher interface {
	Push(event models.Event) error
}

type Service struct {
	db       *database.Database
	geocoder Geocoder
	events   Publisher
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService creates a listing service. geocoder and events may be nil.
func NewService(db *database.Database, geocoder Geocoder, events Publisher, logger *logrus.Logger) *Service {
	return &Service{
		db:       db,
		geocoder: geocoder,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Input is the host-editable content of a listing.
type Input struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description" binding:"max=5000"`
	Street      string   `json:"street"`
	City        string   `json:"city" binding:"required"`
	Country     string   `json:"country"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,longitude"`
	BasePrice   int64    `json:"base_price" binding:"required,gt=0"`
	MinStay     int      `json:"min_stay" binding:"omitempty,gte=1"`
	MaxGuests   int      `json:"max_guests" binding:"omitempty,gte=1"`
	Rooms       int      `json:"rooms" binding:"omitempty,gte=1"`
	Amenities   []string `json:"amenities"`
	Photos      []string `json:"photos" binding:"omitempty,dive,url"`
}

func (in *Input) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.City = strings.TrimSpace(in.City)
	switch {
	case in.Title == "":
		return apperrors.InvalidArg("title is required")
	case in.City == "":
		return apperrors.InvalidArg("city is required")
	case in.BasePrice <= 0:
		return apperrors.InvalidArg("base price must be positive")
	case in.MinStay < 0 || in.MaxGuests < 0 || in.Rooms < 0:
		return apperrors.InvalidArg("min stay, guests and rooms cannot be negative")
	case (in.Latitude == nil) != (in.Longitude == nil):
		return apperrors.InvalidArg("latitude and longitude must be given together")
	}
	return nil
}

func (in *Input) apply(a *models.Apartment) {
	a.Title = in.Title
	a.Description = strings.TrimSpace(in.Description)
	a.Street = strings.TrimSpace(in.Street)
	a.City = in.City
	a.CitySlug = config.NormalizeCity(in.City)
	a.Country = strings.TrimSpace(in.Country)
	a.Latitude = in.Latitude
	a.Longitude = in.Longitude
	a.BasePrice = in.BasePrice
	a.MinStay = max(in.MinStay, 1)
	a.MaxGuests = max(in.MaxGuests, 1)
	a.Rooms = max(in.Rooms, 1)
	a.Amenities = normalizeAmenities(in.Amenities)
	a.Photos = in.Photos
	if a.Photos == nil {
		a.Photos = []string{}
	}
}

func normalizeAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// Create submits a listing for moderation. It starts PENDING and
// unpublished whatever the input says.
func (s *Service) Create(ctx context.Context, hostID uint, in Input) (*models.Apartment, error) {
	if hostID == 0 {
		return nil, apperrors.Unauthorized("user id is required")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	apartment := &models.Apartment{HostID: hostID}
	in.apply(apartment)
	apartment.Status = models.ListingPending
	apartment.IsPublished = false
	s.locate(ctx, apartment)

	if err := s.db.CreateApartment(ctx, apartment); err != nil {
		return nil, apperrors.Internal("failed to create listing", err)
	}

	s.logger.WithFields(logrus.Fields{
		"apartment_id": apartment.ID,
		"host_id":      hostID,
		"city":         apartment.CitySlug,
	}).Info("Listing submitted for moderation")
	s.publish(models.EventListingSubmitted, apartment.ID, hostID)
	return apartment, nil
}

// locate fills missing coordinates from the address. Failures only log.
func (s *Service) locate(ctx context.Context, a *models.Apartment) {
	if _, ok := a.Point(); ok || s.geocoder == nil {
		return
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{a.Street, a.City, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	p, err := s.geocoder.Geocode(ctx, strings.Join(parts, ", "))
	if err != nil {
		s.logger.WithError(err).WithField("city", a.City).Warn("Failed to geocode listing address")
		return
	}
	a.SetPoint(p)
}

// Update replaces the listing content. Any edit sends the listing back to
// moderation and takes it offline.
func (s *Service) Update(ctx context.Context, hostID, id uint, in Input) (*models.Apartment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	apartment, err := s.owned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}

	previous := apartment.Street + "|" + apartment.CitySlug + "|" + apartment.Country
	keepPoint := in.Latitude == nil
	oldLat, oldLon := apartment.Latitude, apartment.Longitude

	in.apply(apartment)
	if keepPoint && previous == apartment.Street+"|"+apartment.CitySlug+"|"+apartment.Country {
		apartment.Latitude, apartment.Longitude = oldLat, oldLon
	}
	s.locate(ctx, apartment)

	apartment.Status = models.ListingPending
	apartment.IsPublished = false
	apartment.ModerationNote = ""

	if err := s.db.SaveApartment(ctx, apartment); err != nil {
		return nil, apperrors.Internal("failed to update listing", err)
	}
	s.logger.WithField("apartment_id", id).Info("Listing updated and resubmitted for moderation")
	s.publish(models.EventListingSubmitted, id, hostID)
	return apartment, nil
}

// Moderate records an admin decision. Approval publishes the listing and
// rejection takes it offline.
func (s *Service) Moderate(ctx context.Context, adminID, id uint, status models.ListingStatus, note string) (*models.Apartment, error) {
	if status != models.ListingApproved && status != models.ListingRejected {
		return nil, apperrors.InvalidArgf("moderation status must be %s or %s", models.ListingApproved, models.ListingRejected)
	}
	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"status":          status,
		"moderation_note": strings.TrimSpace(note),
		"is_published":    status == models.ListingApproved,
	}
	if err := s.db.UpdateApartmentFields(ctx, id, fields); err != nil {
		return nil, apperrors.Internal("failed to moderate listing", err)
	}
	apartment.Status = status
	apartment.ModerationNote = strings.TrimSpace(note)
	apartment.IsPublished = status == models.ListingApproved

	s.logger.WithFields(logrus.Fields{
		"apartment_id": id,
		"admin_id":     adminID,
		"status":       status,
	}).Info("Listing moderated")

	s.publish(models.EventListingModerated, id, adminID)
	return apartment, nil
}

func (s *Service) publish(eventType models.EventType, apartmentID, actorID uint) {
	if s.events == nil {
		return
	}
	err := s.events.Push(models.Event{
		Type:        eventType,
		ApartmentID: apartmentID,
		ActorID:     actorID,
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish event")
	}
}

// SetPublished toggles visibility of an approved listing.
func (s *Service) SetPublished(ctx context.Context, hostID, id uint, published bool) (*models.Apartment, error) {
	apartment, err := s.owned(ctx, hostID, id)
	if err != nil {
		return nil, err
	}
	if published && apartment.Status != models.ListingApproved {
		return nil, apperrors.FailedPrecondition("only approved listings can be published")
	}
	if err := s.db.UpdateApartmentFields(ctx, id, map[string]any{"is_published": published}); err != nil {
		return nil, apperrors.Internal("failed to update listing", err)
	}
	apartment.IsPublished = published
	return apartment, nil
}

// Get returns a listing. Listings that are not bookable are visible only to
// their host and to admins.
func (s *Service) Get(ctx context.Context, id, viewerID uint, admin bool) (*models.Apartment, error) {
	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !apartment.Bookable() && !admin && apartment.HostID != viewerID {
		return nil, apperrors.ErrApartmentNotFound
	}
	return apartment, nil
}

func (s *Service) ListByHost(ctx context.Context, hostID uint) ([]models.Apartment, error) {
	apartments, err := s.db.ListApartmentsByHost(ctx, hostID)
	if err != nil {
		return nil, apperrors.Internal("failed to list listings", err)
	}
	return apartments, nil
}

// ListPending returns the moderation queue, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]models.Apartment, error) {
	apartments, err := s.db.ListApartmentsByStatus(ctx, models.ListingPending)
	if err != nil {
		return nil, apperrors.Internal("failed to list listings", err)
	}
	return apartments, nil
}

type RuleInput struct {
	Date    string `json:"date" binding:"required,date"`
	Price   int64  `json:"price" binding:"gte=0"`
	Blocked bool   `json:"blocked"`
}

// UpsertPricingRules stores one rule per day, replacing existing rules for
// the same days. Past days are rejected.
func (s *Service) UpsertPricingRules(ctx context.Context, hostID, id uint, inputs []RuleInput) ([]models.PricingRule, error) {
	if len(inputs) == 0 {
		return nil, apperrors.InvalidArg("at least one rule is required")
	}
	if _, err := s.owned(ctx, hostID, id); err != nil {
		return nil, err
	}

	today := dates.Today(s.now())
	byDay := make(map[string]models.PricingRule, len(inputs))
	for _, in := range inputs {
		day, err := dates.Parse(in.Date)
		if err != nil {
			return nil, apperrors.InvalidArg(err.Error())
		}
		if day.Before(today) {
			return nil, apperrors.InvalidArgf("%s is in the past", in.Date)
		}
		if in.Price < 0 {
			return nil, apperrors.InvalidArg("price cannot be negative")
		}
		if in.Price == 0 && !in.Blocked {
			return nil, apperrors.InvalidArgf("rule for %s must set a price or block the day", in.Date)
		}
		byDay[dates.Key(day)] = models.PricingRule{ApartmentID: id, Date: day, Price: in.Price, Blocked: in.Blocked}
	}

	rules := make([]models.PricingRule, 0, len(byDay))
	for _, r := range byDay {
		rules = append(rules, r)
	}
	if err := s.db.UpsertPricingRules(ctx, rules); err != nil {
		return nil, apperrors.Internal("failed to save pricing rules", err)
	}
	return s.db.PricingRules(ctx, id, today, time.Time{})
}

func (s *Service) DeletePricingRule(ctx context.Context, hostID, id uint, day time.Time) error {
	if _, err := s.owned(ctx, hostID, id); err != nil {
		return err
	}
	err := s.db.DeletePricingRule(ctx, id, dates.Day(day))
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound("no pricing rule for " + dates.Key(day))
	}
	if err != nil {
		return apperrors.Internal("failed to delete pricing rule", err)
	}
	return nil
}

// PricingRules lists the host's rules from today on.
func (s *Service) PricingRules(ctx context.Context, hostID, id uint, admin bool) ([]models.PricingRule, error) {
	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && apartment.HostID != hostID {
		return nil, apperrors.ErrNotOwner
	}
	rules, err := s.db.PricingRules(ctx, id, dates.Today(s.now()), time.Time{})
	if err != nil {
		return nil, apperrors.Internal("failed to load pricing rules", err)
	}
	return rules, nil
}

func (s *Service) load(ctx context.Context, id uint) (*models.Apartment, error) {
	apartment, err := s.db.GetApartment(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperrors.ErrApartmentNotFound
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load listing", err)
	}
	return apartment, nil
}

func (s *Service) owned(ctx context.Context, hostID, id uint) (*models.Apartment, error) {
	apartment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if apartment.HostID != hostID {
		return nil, apperrors.ErrNotOwner
	}
	return apartment, nil
}
