package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/internal/clock"
	"taskboard/internal/kv"
)

const csrfRevokedKey = "csrf-revoked"

// SignedCSRF issues HMAC-signed tokens validated against a server-held
// secret, so validity does not depend on a shared registry. Revoked token
// ids are remembered in the kv store until they would have expired.
type SignedCSRF struct {
	mu     sync.Mutex
	store  *kv.Store
	secret []byte
	tokens TokenGenerator
	ttl    time.Duration
	clock  clock.Clock
}

func NewSignedCSRF(store *kv.Store, secret []byte, tokens TokenGenerator, ttl time.Duration, clk clock.Clock) (*SignedCSRF, error) {
	if len(secret) == 0 {
		return nil, errors.New("csrf signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultCSRFTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SignedCSRF{
		store:  store,
		secret: secret,
		tokens: tokens,
		ttl:    ttl,
		clock:  clk,
	}, nil
}

func (s *SignedCSRF) Issue(_ context.Context) (string, error) {
	id, err := s.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("generate csrf token id: %w", err)
	}

	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign csrf token: %w", err)
	}
	return signed, nil
}

func (s *SignedCSRF) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *SignedCSRF) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	claims, err := s.parse(token)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, revoked := s.loadRevoked(ctx)[claims.ID]
	return !revoked
}

func (s *SignedCSRF) Revoke(ctx context.Context, token string) {
	claims, err := s.parse(token)
	if err != nil {
		// expired or forged tokens are already invalid
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	revoked := s.loadRevoked(ctx)
	revoked[claims.ID] = claims.ExpiresAt.UnixMilli()
	s.store.Set(ctx, csrfRevokedKey, revoked)
}

func (s *SignedCSRF) Sweep(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UnixMilli()
	revoked := s.loadRevoked(ctx)
	for id, expiresAt := range revoked {
		if expiresAt <= now {
			delete(revoked, id)
		}
	}
	s.store.Set(ctx, csrfRevokedKey, revoked)
}

func (s *SignedCSRF) loadRevoked(ctx context.Context) map[string]int64 {
	revoked := map[string]int64{}
	if !s.store.Get(ctx, csrfRevokedKey, &revoked) || revoked == nil {
		return map[string]int64{}
	}
	return revoked
}

var _ CSRFProvider = (*SignedCSRF)(nil)
