package api

import (
	"strconv"
	"strings"
	"time"

	"rentals/server/internal/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "admin"

	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
)

// RequestLogger logs one line per request through logrus.
func RequestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"status":    c.Writer.Status(),
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		}
		entry := logger.WithFields(fields)
		switch {
		case c.Writer.Status() >= 500:
			entry.Error("Request completed")
		case c.Writer.Status() >= 400:
			entry.Warn("Request completed")
		default:
			entry.Info("Request completed")
		}
	}
}

// Identity reads the caller set by the upstream auth proxy. Requests without
// the header continue anonymously.
func (h *Handler) Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			h.fail(c, apperrors.Unauthorized("invalid user id"))
			return
		}
		c.Set(ctxUserID, uint(id))
		c.Set(ctxIsAdmin, strings.EqualFold(c.GetHeader(HeaderUserRole), RoleAdmin))
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID(c) == 0 {
			h.fail(c, apperrors.Unauthorized("authentication required"))
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID(c) == 0 {
			h.fail(c, apperrors.Unauthorized("authentication required"))
			return
		}
		if !isAdmin(c) {
			h.fail(c, apperrors.ErrAdminOnly)
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

func isAdmin(c *gin.Context) bool {
	return c.GetBool(ctxIsAdmin)
}
