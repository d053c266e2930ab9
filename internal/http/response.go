package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"taskboard/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// nullData makes a successful response carry an explicit "data": null.
var nullData = json.RawMessage("null")

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func respondFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: message})
}

// respondError maps err through the apperr taxonomy. Internal errors are
// logged with their cause; the caller only sees the message.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	if appErr.StatusCode() >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	respondFailure(c, appErr.StatusCode(), appErr.Message)
}
