package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskboard/internal/clock"
	"taskboard/internal/kv"
)

const (
	csrfTokensKey = "csrf-tokens"

	// DefaultCSRFTTL is how long an issued CSRF token stays valid.
	DefaultCSRFTTL = time.Hour
)

// CSRFProvider issues and checks anti-forgery tokens.
type CSRFProvider interface {
	Issue(ctx context.Context) (string, error)
	Validate(ctx context.Context, token string) bool
	// Revoke invalidates token before its natural expiry.
	Revoke(ctx context.Context, token string)
	// Sweep drops state kept for tokens that have expired.
	Sweep(ctx context.Context)
}

// RegistryCSRF keeps every issued token in a kv map of token to expiry
// (unix milliseconds). A token is valid while present and unexpired; any
// token is accepted regardless of which session requested it.
type RegistryCSRF struct {
	mu     sync.Mutex
	store  *kv.Store
	tokens TokenGenerator
	ttl    time.Duration
	clock  clock.Clock
}

func NewRegistryCSRF(store *kv.Store, tokens TokenGenerator, ttl time.Duration, clk clock.Clock) *RegistryCSRF {
	if ttl <= 0 {
		ttl = DefaultCSRFTTL
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &RegistryCSRF{
		store:  store,
		tokens: tokens,
		ttl:    ttl,
		clock:  clk,
	}
}

func (r *RegistryCSRF) load(ctx context.Context) map[string]int64 {
	registry := map[string]int64{}
	if !r.store.Get(ctx, csrfTokensKey, &registry) || registry == nil {
		return map[string]int64{}
	}
	return registry
}

func (r *RegistryCSRF) Issue(ctx context.Context) (string, error) {
	token, err := r.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	registry := r.load(ctx)
	registry[token] = r.clock.Now().Add(r.ttl).UnixMilli()
	r.store.Set(ctx, csrfTokensKey, registry)
	return token, nil
}

// Validate reports whether token is registered and unexpired. An expired or
// unknown token is evicted from the registry.
func (r *RegistryCSRF) Validate(ctx context.Context, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry := r.load(ctx)
	expiresAt, ok := registry[token]
	if ok && r.clock.Now().UnixMilli() < expiresAt {
		return true
	}

	delete(registry, token)
	r.store.Set(ctx, csrfTokensKey, registry)
	return false
}

func (r *RegistryCSRF) Revoke(ctx context.Context, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry := r.load(ctx)
	delete(registry, token)
	r.store.Set(ctx, csrfTokensKey, registry)
}

// Sweep removes every token whose expiry is at or before now.
func (r *RegistryCSRF) Sweep(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UnixMilli()
	registry := r.load(ctx)
	for token, expiresAt := range registry {
		if expiresAt <= now {
			delete(registry, token)
		}
	}
	r.store.Set(ctx, csrfTokensKey, registry)
}

// Len returns the number of registered tokens, expired or not.
func (r *RegistryCSRF) Len(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.load(ctx))
}

var _ CSRFProvider = (*RegistryCSRF)(nil)
