// Package client talks to the task API on behalf of a single user. It keeps
// the session returned by Login and attaches its bearer and CSRF tokens to
// every request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/service"
)

const networkErrorMessage = "Network error occurred"

// ErrNotLoggedIn is returned by calls that need a session before Login succeeded.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a failed API call. Status is zero for transport failures.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) csrfRejected() bool {
	return e.Status == http.StatusForbidden && strings.Contains(e.Message, "CSRF")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger

	mu      sync.Mutex
	session *domain.Session
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
	}
	return c
}

// Session returns a copy of the current session, or nil.
func (c *Client) Session() *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *domain.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var session domain.Session
	body := map[string]string{"email": email, "password": password}
	if err := c.send(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	c.setSession(&session)
	return &session, nil
}

// Logout ends the server session and forgets the local one.
func (c *Client) Logout(ctx context.Context) error {
	err := c.send(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.setSession(nil)
	return err
}

// Refresh rotates the CSRF token and extends the session.
func (c *Client) Refresh(ctx context.Context) error {
	var session domain.Session
	if err := c.send(ctx, http.MethodPost, "/api/auth/refresh", nil, &session); err != nil {
		return err
	}
	c.setSession(&session)
	return nil
}

func (c *Client) ListTasks(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := c.call(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	if err := c.call(ctx, http.MethodGet, "/api/tasks/"+id, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
	var task domain.Task
	if err := c.call(ctx, http.MethodPost, "/api/tasks", in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, in service.UpdateTaskInput) (*domain.Task, error) {
	var task domain.Task
	if err := c.call(ctx, http.MethodPut, "/api/tasks/"+id, in, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// call performs an authenticated request. A mutating request rejected for
// its CSRF token is retried once after refreshing the session.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	if c.Session() == nil {
		return ErrNotLoggedIn
	}

	err := c.send(ctx, method, path, body, out)
	var apiErr *APIError
	if method == http.MethodGet || !errors.As(err, &apiErr) || !apiErr.csrfRejected() {
		return err
	}

	c.logger.WithField("path", path).Debug("csrf token rejected, refreshing session")
	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		return err
	}
	return c.send(ctx, method, path, body, out)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session := c.Session(); session != nil {
		req.Header.Set("Authorization", "Bearer "+session.Token)
		if method != http.MethodGet {
			req.Header.Set("X-CSRF-Token", session.CSRFToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: networkErrorMessage, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: networkErrorMessage, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.setSession(nil)
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
