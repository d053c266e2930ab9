package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type csrfTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondFailure(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		respondFailure(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session, "Login successful")
}

func (h *Handler) logout(c *gin.Context) {
	h.sessions.Logout(c.Request.Context())
	respond(c, http.StatusOK, nullData, "Logout successful")
}

func (h *Handler) session(c *gin.Context) {
	session := h.sessions.CurrentSession(c.Request.Context())
	if session == nil {
		respondFailure(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respond(c, http.StatusOK, session, "")
}

func (h *Handler) refresh(c *gin.Context) {
	session, err := h.sessions.RefreshSession(c.Request.Context())
	if errors.Is(err, auth.ErrNoSession) {
		respondFailure(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, session, "Session refreshed successfully")
}

func (h *Handler) issueCSRFToken(c *gin.Context) {
	token, err := h.sessions.GenerateCSRFToken(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, csrfTokenResponse{CSRFToken: token}, "CSRF token generated successfully")
}
