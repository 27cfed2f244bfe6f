package api

import (
	"net/http"

	"rentals/server/internal/models"
	"rentals/server/internal/review"

	"github.com/gin-gonic/gin"
)

type reviewModerationRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

func (h *Handler) CreateReview(c *gin.Context) {
	var in review.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	created, err := h.reviews.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListListingReviews returns the approved reviews of an apartment.
func (h *Handler) ListListingReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListForApartment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

// ListHostReviews returns the approved reviews of a host.
func (h *Handler) ListHostReviews(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	reviews, err := h.reviews.ListForHost(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) ListPendingReviews(c *gin.Context) {
	reviews, err := h.reviews.ListPending(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *Handler) ModerateReview(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req reviewModerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	moderated, err := h.reviews.Moderate(c.Request.Context(), id, userID(c), models.ReviewStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, moderated)
}
