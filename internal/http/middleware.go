package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
)

const (
	csrfHeader = "X-CSRF-Token"
	userKey    = "user"
)

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+csrfHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// csrfHeaderRequired rejects mutating requests that carry no CSRF header at
// all, before any authentication happens.
func csrfHeaderRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead &&
			c.GetHeader(csrfHeader) == "" {
			respondFailure(c, http.StatusForbidden, "CSRF token required")
			return
		}
		c.Next()
	}
}

// requireSession resolves the bearer token to the live session's user.
// unauthorized is the message sent when the token is missing or stale.
func (h *Handler) requireSession(unauthorized string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		token := extractBearer(c.GetHeader("Authorization"))
		if token == "" || !h.sessions.ValidateSessionToken(ctx, token) {
			respondFailure(c, http.StatusUnauthorized, unauthorized)
			return
		}

		user := h.sessions.CurrentUser(ctx)
		if user == nil {
			respondFailure(c, http.StatusUnauthorized, "User not found")
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func (h *Handler) requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader(csrfHeader)
		if token == "" || !h.sessions.ValidateCSRFToken(c.Request.Context(), token) {
			respondFailure(c, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		c.Next()
	}
}

func extractBearer(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("bearer "):])
}

func currentUser(c *gin.Context) *domain.User {
	v, _ := c.Get(userKey)
	user, _ := v.(*domain.User)
	return user
}
