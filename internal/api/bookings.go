package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"rentals/server/internal/booking"
	"rentals/server/internal/dates"
	"rentals/server/internal/models"

	"github.com/gin-gonic/gin"
)

type availabilityParams struct {
	CheckIn  string `form:"check_in" binding:"omitempty,date"`
	CheckOut string `form:"check_out" binding:"omitempty,date"`
}

type bookingRequest struct {
	CheckIn  string `json:"check_in" binding:"required,date"`
	CheckOut string `json:"check_out" binding:"required,date"`
	Guests   int    `json:"guests" binding:"gte=0"`
	Comment  string `json:"comment" binding:"max=2000"`
}

type hostBookingParams struct {
	Status string `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED CANCELLED COMPLETED"`
}

// GetAvailability reports booked dates and, for a requested stay, whether it
// can be booked and what it costs.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var params availabilityParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.badRequest(c, err)
		return
	}

	var checkIn, checkOut time.Time
	if params.CheckIn != "" {
		checkIn, _ = dates.Parse(params.CheckIn)
	}
	if params.CheckOut != "" {
		checkOut, _ = dates.Parse(params.CheckOut)
	}

	report, err := h.bookings.Availability(c.Request.Context(), id, checkIn, checkOut)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	checkIn, _ := dates.Parse(req.CheckIn)
	checkOut, _ := dates.Parse(req.CheckOut)

	created, err := h.bookings.Create(c.Request.Context(), booking.CreateRequest{
		ApartmentID: id,
		TenantID:    userID(c),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      req.Guests,
		Comment:     strings.TrimSpace(req.Comment),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	b, err := h.bookings.Get(c.Request.Context(), id, userID(c), isAdmin(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListTenantBookings(c *gin.Context) {
	bookings, err := h.bookings.ListForTenant(c.Request.Context(), userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) ListHostBookings(c *gin.Context) {
	var params hostBookingParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.badRequest(c, err)
		return
	}
	bookings, err := h.bookings.ListForHost(c.Request.Context(), userID(c), models.BookingStatus(params.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) ConfirmBooking(c *gin.Context) {
	h.transitionBooking(c, h.bookings.Confirm)
}

func (h *Handler) RejectBooking(c *gin.Context) {
	h.transitionBooking(c, h.bookings.Reject)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	h.transitionBooking(c, h.bookings.Cancel)
}

type bookingTransition func(ctx context.Context, id, actorID uint) (*models.Booking, error)

func (h *Handler) transitionBooking(c *gin.Context, apply bookingTransition) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	b, err := apply(c.Request.Context(), id, userID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
