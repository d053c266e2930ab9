package auth

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CredentialVerifier decides whether secret proves identity.
type CredentialVerifier interface {
	Verify(ctx context.Context, identity, secret string) bool
}

// AnyPassword accepts every non-empty secret. It stands in for real
// credential checks and must not be used outside development.
type AnyPassword struct{}

func (AnyPassword) Verify(_ context.Context, identity, secret string) bool {
	return strings.TrimSpace(identity) != "" && secret != ""
}

// BcryptVerifier checks secrets against bcrypt hashes keyed by identity.
type BcryptVerifier struct {
	hashes map[string]string
}

func NewBcryptVerifier(hashes map[string]string) *BcryptVerifier {
	copied := make(map[string]string, len(hashes))
	for identity, hash := range hashes {
		copied[strings.TrimSpace(identity)] = hash
	}
	return &BcryptVerifier{hashes: copied}
}

func (v *BcryptVerifier) Verify(_ context.Context, identity, secret string) bool {
	hash, ok := v.hashes[strings.TrimSpace(identity)]
	if !ok || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
