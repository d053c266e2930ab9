package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
	"taskboard/internal/kv"
	"taskboard/internal/kv/memory"
	"taskboard/internal/repository/kvstore"
	"taskboard/internal/service"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testServer struct {
	router  *gin.Engine
	clock   *fakeClock
	tasks   *kvstore.TaskRepository
	manager *auth.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, _ := test.NewNullLogger()
	store := kv.New(memory.New(), kv.DefaultNamespace, logger)
	clk := &fakeClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}

	users := kvstore.NewUserRepository(store, clk)
	tasks := kvstore.NewTaskRepository(store, clk)
	manager, err := auth.NewManager(store, users, auth.Options{Clock: clk, Logger: logger})
	require.NoError(t, err)

	router := gin.New()
	NewHandler(service.NewTaskService(tasks), manager, logger).RegisterRoutes(router)
	return &testServer{router: router, clock: clk, tasks: tasks, manager: manager}
}

type response struct {
	Status  int
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	resp.Status = rec.Code
	return resp
}

func (s *testServer) login(t *testing.T, email string) domain.Session {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": email, "password": "pw"}, nil)
	require.Equal(t, http.StatusOK, resp.Status)
	var session domain.Session
	require.NoError(t, json.Unmarshal(resp.Data, &session))
	return session
}

func authHeaders(session domain.Session) map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + session.Token,
		"X-CSRF-Token":  session.CSRFToken,
	}
}

func decodeTask(t *testing.T, resp response) domain.Task {
	t.Helper()
	var task domain.Task
	require.NoError(t, json.Unmarshal(resp.Data, &task))
	return task
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.True(t, resp.Success)
}

func TestDemoScenario(t *testing.T) {
	s := newTestServer(t)
	first := s.login(t, "demo@example.com")
	assert.Equal(t, "demo@example.com", first.User.Email)
	assert.Equal(t, "Demo", first.User.Name)

	resp := s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "Write docs", "description": "API reference"}, authHeaders(first))
	require.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "Task created successfully", resp.Message)
	task := decodeTask(t, resp)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, domain.TaskPriorityMedium, task.Priority)
	assert.Equal(t, first.User.ID, task.UserID)

	second := s.login(t, "demo@example.com")
	assert.Equal(t, first.User.ID, second.User.ID)

	resp = s.do(t, http.MethodGet, "/api/tasks", nil, authHeaders(first))
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Unauthorized", resp.Error)

	resp = s.do(t, http.MethodGet, "/api/tasks", nil, authHeaders(second))
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Tasks retrieved successfully", resp.Message)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(resp.Data, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestOwnershipIsolation(t *testing.T) {
	s := newTestServer(t)
	alice := s.login(t, "alice@example.com")
	created := s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t", "description": "d"}, authHeaders(alice))
	require.Equal(t, http.StatusCreated, created.Status)
	task := decodeTask(t, created)

	bob := s.login(t, "bob@example.com")
	headers := authHeaders(bob)

	resp := s.do(t, http.MethodGet, "/api/tasks", nil, headers)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `[]`, string(resp.Data))

	resp = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, headers)
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Access denied", resp.Error)

	resp = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, gin.H{"title": "stolen"}, headers)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	resp = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, gin.H{"status": 5}, headers)
	assert.Equal(t, http.StatusForbidden, resp.Status, "ownership is checked before the body")
	assert.Equal(t, "Access denied", resp.Error)

	resp = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil, headers)
	assert.Equal(t, http.StatusForbidden, resp.Status)

	stored, err := s.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", stored.Title)
}

func TestCSRFGating(t *testing.T) {
	s := newTestServer(t)
	session := s.login(t, "demo@example.com")
	bearer := "Bearer " + session.Token
	body := gin.H{"title": "t", "description": "d"}

	resp := s.do(t, http.MethodPost, "/api/tasks", body, map[string]string{"Authorization": bearer})
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "CSRF token required", resp.Error)

	resp = s.do(t, http.MethodPost, "/api/tasks", body, map[string]string{"Authorization": bearer, "X-CSRF-Token": "forged"})
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Invalid CSRF token", resp.Error)

	s.clock.Advance(auth.DefaultCSRFTTL)
	resp = s.do(t, http.MethodPost, "/api/tasks", body, authHeaders(session))
	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, "Invalid CSRF token", resp.Error)

	all, err := s.tasks.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)

	resp = s.do(t, http.MethodGet, "/api/tasks", nil, map[string]string{"Authorization": bearer})
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestBearerChecks(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/api/tasks", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Unauthorized", resp.Error)

	resp = s.do(t, http.MethodGet, "/api/tasks", nil, map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)

	resp = s.do(t, http.MethodPost, "/api/tasks", gin.H{}, map[string]string{"X-CSRF-Token": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestSessionExpiry(t *testing.T) {
	s := newTestServer(t)
	session := s.login(t, "demo@example.com")

	s.clock.Advance(auth.DefaultSessionTTL)
	resp := s.do(t, http.MethodGet, "/api/tasks", nil, authHeaders(session))
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, s.manager.IsAuthenticated(context.Background()))
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)
	session := s.login(t, "demo@example.com")
	headers := authHeaders(session)
	task := decodeTask(t, s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t", "description": "d"}, headers))

	resp := s.do(t, http.MethodPut, "/api/tasks/"+task.ID, gin.H{"status": "archived"}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid status value", resp.Error)

	stored, err := s.tasks.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, task.UpdatedAt, stored.UpdatedAt)
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	session := s.login(t, "demo@example.com")
	headers := authHeaders(session)

	resp := s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t"}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Title and description are required", resp.Error)

	task := decodeTask(t, s.do(t, http.MethodPost, "/api/tasks",
		gin.H{"title": "t", "description": "d", "priority": "high"}, headers))

	resp = s.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil, headers)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Task retrieved successfully", resp.Message)
	assert.Equal(t, task, decodeTask(t, resp))

	s.clock.Advance(time.Minute)
	resp = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, gin.H{"status": "completed"}, headers)
	require.Equal(t, http.StatusOK, resp.Status)
	updated := decodeTask(t, resp)
	assert.Equal(t, domain.TaskStatusCompleted, updated.Status)
	assert.Equal(t, domain.TaskPriorityHigh, updated.Priority)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(task.UpdatedAt))

	resp = s.do(t, http.MethodPut, "/api/tasks/"+task.ID, "not an object", headers)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid request body", resp.Error)

	resp = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil, headers)
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "Task deleted successfully", resp.Message)
	assert.Equal(t, "null", string(resp.Data))

	resp = s.do(t, http.MethodDelete, "/api/tasks/"+task.ID, nil, headers)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Task not found", resp.Error)

	resp = s.do(t, http.MethodGet, "/api/tasks/missing", nil, headers)
	assert.Equal(t, http.StatusNotFound, resp.Status)

	resp = s.do(t, http.MethodPut, "/api/tasks/missing", gin.H{"title": 7}, headers)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "Task not found", resp.Error)
}

func TestCreateRejectsEmptyOrNullEnums(t *testing.T) {
	s := newTestServer(t)
	headers := authHeaders(s.login(t, "demo@example.com"))

	resp := s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t", "description": "d", "status": ""}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid status value", resp.Error)

	resp = s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t", "description": "d", "priority": nil}, headers)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "Invalid priority value", resp.Error)
}

func TestCSRFEndpoint(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/api/csrf", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.Equal(t, "Not authenticated", resp.Error)

	session := s.login(t, "demo@example.com")
	resp = s.do(t, http.MethodGet, "/api/csrf", nil, map[string]string{"Authorization": "Bearer " + session.Token})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "CSRF token generated successfully", resp.Message)

	var body csrfTokenResponse
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	assert.Len(t, body.CSRFToken, auth.CSRFTokenLength)

	headers := map[string]string{"Authorization": "Bearer " + session.Token, "X-CSRF-Token": body.CSRFToken}
	resp = s.do(t, http.MethodPost, "/api/tasks", gin.H{"title": "t", "description": "d"}, headers)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "demo@example.com"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)

	session := s.login(t, "demo@example.com")
	bearer := map[string]string{"Authorization": "Bearer " + session.Token}

	resp = s.do(t, http.MethodGet, "/api/auth/session", nil, bearer)
	require.Equal(t, http.StatusOK, resp.Status)

	s.clock.Advance(time.Minute)
	resp = s.do(t, http.MethodPost, "/api/auth/refresh", nil, bearer)
	require.Equal(t, http.StatusOK, resp.Status)
	var refreshed domain.Session
	require.NoError(t, json.Unmarshal(resp.Data, &refreshed))
	assert.Equal(t, session.Token, refreshed.Token)
	assert.NotEqual(t, session.CSRFToken, refreshed.CSRFToken)
	assert.True(t, refreshed.ExpiresAt.After(session.ExpiresAt))

	resp = s.do(t, http.MethodPost, "/api/auth/logout", nil, bearer)
	require.Equal(t, http.StatusOK, resp.Status)

	resp = s.do(t, http.MethodGet, "/api/auth/session", nil, bearer)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-CSRF-Token")
}
