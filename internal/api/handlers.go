package api

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"rentals/server/internal/apperrors"
	"rentals/server/internal/booking"
	"rentals/server/internal/chat"
	"rentals/server/internal/database"
	"rentals/server/internal/favorite"
	"rentals/server/internal/listing"
	"rentals/server/internal/review"
	"rentals/server/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// JobRunner triggers housekeeping jobs on demand.
type JobRunner interface {
	RunNow(ctx context.Context, job scheduler.JobType) (int, error)
}

type Handler struct {
	db        *database.Database
	logger    *logrus.Logger
	listings  *listing.Service
	bookings  *booking.Service
	chats     *chat.Service
	reviews   *review.Service
	favorites *favorite.Service
	jobs      JobRunner
}

type Services struct {
	Listings  *listing.Service
	Bookings  *booking.Service
	Chats     *chat.Service
	Reviews   *review.Service
	Favorites *favorite.Service
	// Optional; the admin job endpoint answers 404 without it
	Jobs JobRunner
}

func NewHandler(db *database.Database, services Services, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:        db,
		logger:    logger,
		listings:  services.Listings,
		bookings:  services.Bookings,
		chats:     services.Chats,
		reviews:   services.Reviews,
		favorites: services.Favorites,
		jobs:      services.Jobs,
	}
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunJob runs a scheduler job immediately.
func (h *Handler) RunJob(c *gin.Context) {
	var job scheduler.JobType
	switch c.Param("job") {
	case scheduler.JobTypeExpirePending.String():
		job = scheduler.JobTypeExpirePending
	case scheduler.JobTypeCompleteStays.String():
		job = scheduler.JobTypeCompleteStays
	default:
		h.fail(c, apperrors.NotFound("unknown job"))
		return
	}
	if h.jobs == nil {
		h.fail(c, apperrors.NotFound("scheduler is not running"))
		return
	}

	changed, err := h.jobs.RunNow(c.Request.Context(), job)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"job":     job.String(),
		"changed": changed,
	})
}

// fail writes err as a JSON error body. Internal errors are logged and
// their details withheld from the client.
func (h *Handler) fail(c *gin.Context, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeInternal {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
	}
	c.AbortWithStatusJSON(httpStatus(code), gin.H{
		"error":   string(code),
		"message": apperrors.MessageOf(err),
	})
}

// badRequest reports a binding or parsing failure.
func (h *Handler) badRequest(c *gin.Context, err error) {
	h.fail(c, apperrors.InvalidArg(bindingMessage(err)))
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidArgument:
		return http.StatusBadRequest
	case apperrors.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.CodePermissionDenied:
		return http.StatusForbidden
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	case apperrors.CodeConflict:
		return http.StatusConflict
	case apperrors.CodeFailedPrecondition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// pathID reads a positive numeric path parameter.
func (h *Handler) pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.fail(c, apperrors.InvalidArgf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
