package domain

import "time"

// Session pairs a snapshot of the user with the bearer and anti-forgery tokens
// issued at login. It is valid strictly before ExpiresAt.
type Session struct {
	User      User      `json:"user"`
	Token     string    `json:"token"`
	CSRFToken string    `json:"csrfToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExpiredAt reports whether the session is no longer valid at now.
func (s Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
