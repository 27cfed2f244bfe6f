package listing

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"rentals/server/config"
	"rentals/server/internal/apperrors"
	"rentals/server/internal/database"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"
	"rentals/server/internal/pricing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	SortRelevance = "relevance"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
	SortNewest    = "newest"

	defaultPageSize = 20
	maxPageSize     = 100

	// review count at which the volume signal saturates
	reviewVolumeCap = 50
)

// Relevance weights; they sum to 1.
const (
	weightRating    = 0.35
	weightVolume    = 0.15
	weightPriceFit  = 0.20
	weightProximity = 0.20
	weightText      = 0.10
)

type Query struct {
	City      string
	MinPrice  int64
	MaxPrice  int64
	Guests    int
	Rooms     int
	Amenities []string
	Text      string

	Near     *orb.Point
	RadiusKm float64

	CheckIn  time.Time
	CheckOut time.Time

	Sort     string
	Page     int
	PageSize int
}

type Result struct {
	Apartment   models.Apartment `json:"apartment"`
	Score       float64          `json:"score"`
	Rating      float64          `json:"rating"`
	ReviewCount int64            `json:"review_count"`
	DistanceKm  *float64         `json:"distance_km,omitempty"`
	TotalPrice  *int64           `json:"total_price,omitempty"`
}

type Page struct {
	Items    []Result `json:"items"`
	Total    int      `json:"total"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
}

func (q *Query) normalize() error {
	q.Sort = strings.ToLower(strings.TrimSpace(q.Sort))
	switch q.Sort {
	case "":
		q.Sort = SortRelevance
	case SortRelevance, SortPriceAsc, SortPriceDesc, SortRating, SortNewest:
	default:
		return apperrors.InvalidArgf("unknown sort %q", q.Sort)
	}
	if q.MinPrice < 0 || q.MaxPrice < 0 {
		return apperrors.InvalidArg("prices cannot be negative")
	}
	if q.MaxPrice > 0 && q.MinPrice > q.MaxPrice {
		return apperrors.InvalidArg("min price exceeds max price")
	}
	if q.RadiusKm < 0 {
		return apperrors.InvalidArg("radius cannot be negative")
	}
	if q.RadiusKm > 0 && q.Near == nil {
		return apperrors.InvalidArg("radius requires a point")
	}
	if !q.CheckIn.IsZero() || !q.CheckOut.IsZero() {
		if q.CheckIn.IsZero() || q.CheckOut.IsZero() || !dates.Day(q.CheckIn).Before(dates.Day(q.CheckOut)) {
			return apperrors.ErrInvalidRange
		}
		q.CheckIn, q.CheckOut = dates.Day(q.CheckIn), dates.Day(q.CheckOut)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return nil
}

func (q *Query) hasRange() bool {
	return !q.CheckIn.IsZero()
}

// Search filters bookable listings, scores and sorts them, and returns one
// page.
func (s *Service) Search(ctx context.Context, q Query) (*Page, error) {
	if err := q.normalize(); err != nil {
		return nil, err
	}

	candidates, err := s.db.SearchApartments(ctx, database.ApartmentFilter{
		CitySlug:  config.NormalizeCity(q.City),
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		MinGuests: q.Guests,
		MinRooms:  q.Rooms,
		Text:      q.Text,
	})
	if err != nil {
		return nil, apperrors.Internal("failed to search listings", err)
	}

	// Proximity is scored against the query point, or the city center when
	// only a known city is given.
	origin := q.Near
	if origin == nil && q.City != "" {
		if city := config.GetCityByName(q.City); city != nil {
			origin = &city.Center
		}
	}

	required := normalizeAmenities(q.Amenities)
	results := make([]Result, 0, len(candidates))
	for _, a := range candidates {
		if !hasAmenities(a.Amenities, required) {
			continue
		}
		r := Result{Apartment: a}
		if origin != nil {
			if p, ok := a.Point(); ok {
				km := geo.Distance(*origin, p) / 1000
				r.DistanceKm = &km
			}
		}
		if q.RadiusKm > 0 && (r.DistanceKm == nil || *r.DistanceKm > q.RadiusKm) {
			continue
		}
		if q.hasRange() && dates.Nights(q.CheckIn, q.CheckOut) < a.MinStay {
			continue
		}
		results = append(results, r)
	}

	if q.hasRange() && len(results) > 0 {
		if results, err = s.dropUnavailable(ctx, results, q.CheckIn, q.CheckOut); err != nil {
			return nil, err
		}
	}

	ids := make([]uint, len(results))
	for i := range results {
		ids[i] = results[i].Apartment.ID
	}
	stats, err := s.db.RatingStats(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("failed to load ratings", err)
	}

	radius := q.RadiusKm
	if radius == 0 {
		radius = 10
	}
	for i := range results {
		st := stats[results[i].Apartment.ID]
		results[i].Rating = st.Average
		results[i].ReviewCount = st.Count
		results[i].Score = score(&results[i], q, radius)
	}

	sortResults(results, q.Sort)

	page := &Page{Total: len(results), Page: q.Page, PageSize: q.PageSize, Items: []Result{}}
	start := (q.Page - 1) * q.PageSize
	if start < len(results) {
		end := min(start+q.PageSize, len(results))
		page.Items = results[start:end]
	}

	if q.hasRange() {
		for i := range page.Items {
			if err := s.quote(ctx, &page.Items[i], q.CheckIn, q.CheckOut); err != nil {
				return nil, err
			}
		}
	}
	return page, nil
}

func (s *Service) dropUnavailable(ctx context.Context, results []Result, from, to time.Time) ([]Result, error) {
	ids := make([]uint, len(results))
	for i := range results {
		ids[i] = results[i].Apartment.ID
	}
	unavailable, err := s.db.UnavailableApartments(ctx, ids, from, to)
	if err != nil {
		return nil, apperrors.Internal("failed to check availability", err)
	}

	kept := results[:0]
	for _, r := range results {
		if !unavailable[r.Apartment.ID] {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// quote prices the requested stay for one result.
func (s *Service) quote(ctx context.Context, r *Result, from, to time.Time) error {
	rules, err := s.db.PricingRules(ctx, r.Apartment.ID, from, to)
	if err != nil {
		return apperrors.Internal("failed to load pricing rules", err)
	}
	resolver := pricing.NewResolver(r.Apartment.BasePrice, rules)
	var total int64
	dates.Each(from, to, func(d time.Time) bool {
		total += resolver.Resolve(d).Price
		return true
	})
	r.TotalPrice = &total
	return nil
}

func hasAmenities(have []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, a := range have {
		set[strings.ToLower(a)] = true
	}
	for _, a := range required {
		if !set[a] {
			return false
		}
	}
	return true
}

// score is a weighted sum of normalized signals, each in [0, 1].
func score(r *Result, q Query, radiusKm float64) float64 {
	rating := r.Rating / 5

	volume := 0.0
	if r.ReviewCount > 0 {
		volume = math.Min(1, math.Log1p(float64(r.ReviewCount))/math.Log1p(reviewVolumeCap))
	}

	return weightRating*rating +
		weightVolume*volume +
		weightPriceFit*priceFit(r.Apartment.BasePrice, q.MinPrice, q.MaxPrice) +
		weightProximity*proximity(r.DistanceKm, radiusKm) +
		weightText*textMatch(&r.Apartment, q.Text)
}

// priceFit is 1 at the middle of the requested band and falls off toward
// its edges. Without a full band a cheaper listing fits better.
func priceFit(price, minPrice, maxPrice int64) float64 {
	switch {
	case minPrice > 0 && maxPrice > 0:
		mid := float64(minPrice+maxPrice) / 2
		half := float64(maxPrice-minPrice) / 2
		if half == 0 {
			return 1
		}
		return math.Max(0, 1-math.Abs(float64(price)-mid)/half)
	case maxPrice > 0:
		return math.Max(0, 1-float64(price)/float64(maxPrice))
	default:
		return 0.5
	}
}

func proximity(distanceKm *float64, radiusKm float64) float64 {
	if distanceKm == nil {
		return 0
	}
	return math.Max(0, 1-*distanceKm/radiusKm)
}

func textMatch(a *models.Apartment, text string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0
	}
	if strings.Contains(strings.ToLower(a.Title), text) {
		return 1
	}
	if strings.Contains(strings.ToLower(a.Description), text) {
		return 0.5
	}
	return 0
}

func sortResults(results []Result, by string) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		switch by {
		case SortPriceAsc:
			if a.Apartment.BasePrice != b.Apartment.BasePrice {
				return a.Apartment.BasePrice < b.Apartment.BasePrice
			}
		case SortPriceDesc:
			if a.Apartment.BasePrice != b.Apartment.BasePrice {
				return a.Apartment.BasePrice > b.Apartment.BasePrice
			}
		case SortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.ReviewCount != b.ReviewCount {
				return a.ReviewCount > b.ReviewCount
			}
		case SortNewest:
			if !a.Apartment.CreatedAt.Equal(b.Apartment.CreatedAt) {
				return a.Apartment.CreatedAt.After(b.Apartment.CreatedAt)
			}
		default:
			if a.Score != b.Score {
				return a.Score > b.Score
			}
		}
		return a.Apartment.ID < b.Apartment.ID
	})
}
