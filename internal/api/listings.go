package api

import (
	"net/http"
	"strings"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/dates"
	"rentals/server/internal/geometry"
	"rentals/server/internal/listing"
	"rentals/server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
)

type searchParams struct {
	City      string   `form:"city"`
	MinPrice  int64    `form:"min_price" binding:"gte=0"`
	MaxPrice  int64    `form:"max_price" binding:"gte=0"`
	Guests    int      `form:"guests" binding:"gte=0"`
	Rooms     int      `form:"rooms" binding:"gte=0"`
	Amenities []string `form:"amenities"`
	Text      string   `form:"q"`
	Lat       *float64 `form:"lat" binding:"omitempty,latitude"`
	Lng       *float64 `form:"lng" binding:"omitempty,longitude"`
	RadiusKm  float64  `form:"radius_km" binding:"gte=0"`
	CheckIn   string   `form:"check_in" binding:"omitempty,date"`
	CheckOut  string   `form:"check_out" binding:"omitempty,date"`
	Sort      string   `form:"sort"`
	Page      int      `form:"page" binding:"gte=0"`
	PageSize  int      `form:"page_size" binding:"gte=0"`
}

type moderationRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	Note   string `json:"note" binding:"max=1000"`
}

type publicationRequest struct {
	Published *bool `json:"published" binding:"required"`
}

type pricingRequest struct {
	Rules []listing.RuleInput `json:"rules" binding:"required,min=1,dive"`
}

func (h *Handler) SearchListings(c *gin.Context) {
	page, ok := h.search(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, page)
}

// MapListings returns the same page as SearchListings as a GeoJSON feature
// collection. Listings without coordinates are left out.
func (h *Handler) MapListings(c *gin.Context) {
	page, ok := h.search(c)
	if !ok {
		return
	}

	markers := make([]geometry.Marker, 0, len(page.Items))
	for _, item := range page.Items {
		point, located := item.Apartment.Point()
		if !located {
			continue
		}
		props := map[string]any{
			"title":      item.Apartment.Title,
			"base_price": item.Apartment.BasePrice,
			"rating":     item.Rating,
		}
		if item.TotalPrice != nil {
			props["total_price"] = *item.TotalPrice
		}
		markers = append(markers, geometry.Marker{ID: item.Apartment.ID, Point: point, Properties: props})
	}
	c.JSON(http.StatusOK, geometry.Collection(markers))
}

func (h *Handler) search(c *gin.Context) (*listing.Page, bool) {
	var params searchParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.badRequest(c, err)
		return nil, false
	}

	q := listing.Query{
		City:      params.City,
		MinPrice:  params.MinPrice,
		MaxPrice:  params.MaxPrice,
		Guests:    params.Guests,
		Rooms:     params.Rooms,
		Amenities: splitList(params.Amenities),
		Text:      params.Text,
		RadiusKm:  params.RadiusKm,
		Sort:      params.Sort,
		Page:      params.Page,
		PageSize:  params.PageSize,
	}
	if (params.Lat == nil) != (params.Lng == nil) {
		h.fail(c, apperrors.InvalidArg("lat and lng must be given together"))
		return nil, false
	}
	if params.Lat != nil {
		q.Near = &orb.Point{*params.Lng, *params.Lat}
	}
	if params.CheckIn != "" {
		q.CheckIn, _ = dates.Parse(params.CheckIn)
	}
	if params.CheckOut != "" {
		q.CheckOut, _ = dates.Parse(params.CheckOut)
	}

	page, err := h.listings.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return page, true
}

// splitList accepts both repeated parameters and comma separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *Handler) GetListing(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	apartment, err := h.listings.Get(c.Request.Context(), id, userID(c), isAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartment)
}

func (h *Handler) CreateListing(c *gin.Context) {
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	apartment, err := h.listings.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, apartment)
}

func (h *Handler) UpdateListing(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var in listing.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	apartment, err := h.listings.Update(c.Request.Context(), userID(c), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartment)
}

func (h *Handler) SetPublication(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req publicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	apartment, err := h.listings.SetPublished(c.Request.Context(), userID(c), id, *req.Published)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartment)
}

func (h *Handler) ListHostListings(c *gin.Context) {
	apartments, err := h.listings.ListByHost(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartments)
}

func (h *Handler) ListPricingRules(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	rules, err := h.listings.PricingRules(c.Request.Context(), userID(c), id, isAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) UpsertPricingRules(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req pricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	rules, err := h.listings.UpsertPricingRules(c.Request.Context(), userID(c), id, req.Rules)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) DeletePricingRule(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	day, err := dates.Parse(c.Param("date"))
	if err != nil {
		h.fail(c, apperrors.InvalidArg(err.Error()))
		return
	}
	if err := h.listings.DeletePricingRule(c.Request.Context(), userID(c), id, day); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPendingListings(c *gin.Context) {
	apartments, err := h.listings.ListPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartments)
}

func (h *Handler) ModerateListing(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	apartment, err := h.listings.Moderate(c.Request.Context(), userID(c), id, models.ListingStatus(req.Status), req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apartment)
}
