// Package auth owns the session and CSRF token lifecycle: issuing sessions
// at login, persisting the single live session, expiring and rotating it,
// and validating bearer and anti-forgery tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"taskboard/internal/clock"
	"taskboard/internal/domain"
	"taskboard/internal/kv"
	"taskboard/internal/repository"
)

const (
	sessionKey = "auth-session"

	// DefaultSessionTTL is how long a session lives after login or refresh.
	DefaultSessionTTL = 24 * time.Hour
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoSession is returned when an operation needs a live session and there is none.
	ErrNoSession = errors.New("no active session")
)

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	SessionTTL time.Duration
	Verifier   CredentialVerifier
	CSRF       CSRFProvider
	Tokens     TokenGenerator
	Clock      clock.Clock
	Logger     *logrus.Logger
}

// Manager issues, persists, validates, rotates and expires the session kept
// in the store's single session slot.
type Manager struct {
	mu         sync.Mutex
	store      *kv.Store
	users      repository.UserRepository
	verifier   CredentialVerifier
	csrf       CSRFProvider
	tokens     TokenGenerator
	clock      clock.Clock
	sessionTTL time.Duration
	logger     *logrus.Logger
}

func NewManager(store *kv.Store, users repository.UserRepository, opts Options) (*Manager, error) {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}
	if opts.Verifier == nil {
		opts.Verifier = AnyPassword{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Tokens == nil {
		gen, err := NewTokenGenerator(SessionTokenLength)
		if err != nil {
			return nil, err
		}
		opts.Tokens = gen
	}
	if opts.CSRF == nil {
		gen, err := NewTokenGenerator(CSRFTokenLength)
		if err != nil {
			return nil, err
		}
		opts.CSRF = NewRegistryCSRF(store, gen, DefaultCSRFTTL, opts.Clock)
	}

	return &Manager{
		store:      store,
		users:      users,
		verifier:   opts.Verifier,
		csrf:       opts.CSRF,
		tokens:     opts.Tokens,
		clock:      opts.Clock,
		sessionTTL: opts.SessionTTL,
		logger:     opts.Logger,
	}, nil
}

// Login verifies the credentials, resolves or provisions the user and
// replaces the live session with a new one.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if !m.verifier.Verify(ctx, email, password) {
		m.logger.WithField("email", email).Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, err := m.resolveUser(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := m.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	csrfToken, err := m.csrf.Issue(ctx)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		User:      *user,
		Token:     token,
		CSRFToken: csrfToken,
		ExpiresAt: m.clock.Now().Add(m.sessionTTL).UTC(),
	}
	m.store.Set(ctx, sessionKey, session)
	m.csrf.Sweep(ctx)

	m.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("session issued")
	return session, nil
}

func (m *Manager) resolveUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := m.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	user, err = m.users.Create(ctx, email, displayName(email))
	if err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}
	m.logger.WithFields(logrus.Fields{"user_id": user.ID, "email": email}).Info("user provisioned on first login")
	return user, nil
}

// displayName derives a name from the local part of an email address,
// capitalising its first letter.
func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	r, size := utf8.DecodeRuneInString(local)
	return string(unicode.ToUpper(r)) + local[size:]
}

// CurrentSession returns the live session, or nil. A session found past its
// expiry is logged out as a side effect.
func (m *Manager) CurrentSession(ctx context.Context) *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentSession(ctx)
}

func (m *Manager) currentSession(ctx context.Context) *domain.Session {
	var session domain.Session
	if !m.store.Get(ctx, sessionKey, &session) {
		return nil
	}
	if session.ExpiredAt(m.clock.Now()) {
		m.logger.WithField("user_id", session.User.ID).Info("session expired")
		m.logout(ctx, &session)
		return nil
	}
	return &session
}

func (m *Manager) CurrentUser(ctx context.Context) *domain.User {
	session := m.CurrentSession(ctx)
	if session == nil {
		return nil
	}
	user := session.User
	return &user
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.CurrentSession(ctx) != nil
}

// Logout revokes the live session's CSRF token and deletes the session.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var session domain.Session
	if m.store.Get(ctx, sessionKey, &session) {
		m.logout(ctx, &session)
		return
	}
	m.logout(ctx, nil)
}

func (m *Manager) logout(ctx context.Context, session *domain.Session) {
	if session != nil {
		m.csrf.Revoke(ctx, session.CSRFToken)
	}
	m.store.Remove(ctx, sessionKey)
}

// RefreshSession issues a new CSRF token for the live session and pushes its
// expiry out by the session TTL. The previous CSRF token stays valid until it
// expires.
func (m *Manager) RefreshSession(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session := m.currentSession(ctx)
	if session == nil {
		return nil, ErrNoSession
	}

	csrfToken, err := m.csrf.Issue(ctx)
	if err != nil {
		return nil, err
	}
	session.CSRFToken = csrfToken
	session.ExpiresAt = m.clock.Now().Add(m.sessionTTL).UTC()
	m.store.Set(ctx, sessionKey, session)
	return session, nil
}

// ValidateSessionToken reports whether token belongs to the live session.
func (m *Manager) ValidateSessionToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	session := m.CurrentSession(ctx)
	if session == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) == 1
}

// GenerateCSRFToken issues a token that is not bound to any session.
func (m *Manager) GenerateCSRFToken(ctx context.Context) (string, error) {
	return m.csrf.Issue(ctx)
}

func (m *Manager) ValidateCSRFToken(ctx context.Context, token string) bool {
	return m.csrf.Validate(ctx, token)
}

func (m *Manager) CleanExpiredCSRFTokens(ctx context.Context) {
	m.csrf.Sweep(ctx)
}
