// Package http exposes the task API over gin. Every endpoint answers with an
// Envelope; task endpoints require the live session's bearer token, and
// mutating ones a valid CSRF token as well.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/service"
)

// SessionManager is the subset of the auth manager the gateway relies on.
type SessionManager interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Logout(ctx context.Context)
	CurrentSession(ctx context.Context) *domain.Session
	CurrentUser(ctx context.Context) *domain.User
	RefreshSession(ctx context.Context) (*domain.Session, error)
	ValidateSessionToken(ctx context.Context, token string) bool
	GenerateCSRFToken(ctx context.Context) (string, error)
	ValidateCSRFToken(ctx context.Context, token string) bool
}

// Handler wires HTTP routes to the task service and the session manager.
type Handler struct {
	tasks    service.TaskService
	sessions SessionManager
	logger   *logrus.Logger
}

func NewHandler(tasks service.TaskService, sessions SessionManager, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		tasks:    tasks,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware(), requestLogger(h.logger))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			respond(c, http.StatusOK, gin.H{"ok": true}, "")
		})
		api.GET("/csrf", h.requireSession("Not authenticated"), h.issueCSRFToken)

		auth := api.Group("/auth")
		auth.POST("/login", h.login)
		auth.POST("/logout", h.requireSession("Unauthorized"), h.logout)
		auth.GET("/session", h.requireSession("Unauthorized"), h.session)
		auth.POST("/refresh", h.requireSession("Unauthorized"), h.refresh)

		tasks := api.Group("/tasks", csrfHeaderRequired(), h.requireSession("Unauthorized"))
		tasks.GET("", h.listTasks)
		tasks.POST("", h.requireCSRF(), h.createTask)
		tasks.GET("/:id", h.getTask)
		tasks.PUT("/:id", h.requireCSRF(), h.updateTask)
		tasks.DELETE("/:id", h.requireCSRF(), h.deleteTask)
	}
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.tasks.ListTasks(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	respond(c, http.StatusOK, tasks, "Tasks retrieved successfully")
}

func (h *Handler) createTask(c *gin.Context) {
	var req service.CreateTaskInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, task, "Task created successfully")
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.tasks.GetTask(c.Request.Context(), currentUser(c).ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, task, "Task retrieved successfully")
}

// updateTask resolves the task and its owner before looking at the body, so a
// foreign or missing task is reported as such whatever the payload.
func (h *Handler) updateTask(c *gin.Context) {
	ctx := c.Request.Context()
	userID, id := currentUser(c).ID, c.Param("id")

	body, err := c.GetRawData()
	if err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := h.tasks.GetTask(ctx, userID, id); err != nil {
		h.respondError(c, err)
		return
	}

	var req service.UpdateTaskInput
	if err := json.Unmarshal(body, &req); err != nil {
		respondFailure(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.tasks.UpdateTask(ctx, userID, id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, task, "Task updated successfully")
}

func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.tasks.DeleteTask(c.Request.Context(), currentUser(c).ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, nullData, "Task deleted successfully")
}
