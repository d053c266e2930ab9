package auth

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const alphanumeric = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	// SessionTokenLength is the length of generated session tokens.
	SessionTokenLength = 48
	// CSRFTokenLength is the length of generated CSRF tokens.
	CSRFTokenLength = 32
)

// TokenGenerator produces opaque, unguessable identifiers.
type TokenGenerator interface {
	Generate() (string, error)
}

type nanoidGenerator struct {
	next func() string
}

// NewTokenGenerator returns a generator of alphanumeric tokens of the given
// length backed by crypto/rand.
func NewTokenGenerator(length int) (TokenGenerator, error) {
	next, err := nanoid.CustomASCII(alphanumeric, length)
	if err != nil {
		return nil, fmt.Errorf("create token generator: %w", err)
	}
	return &nanoidGenerator{next: next}, nil
}

func (g *nanoidGenerator) Generate() (string, error) {
	return g.next(), nil
}

// TokenFunc adapts a function to TokenGenerator.
type TokenFunc func() (string, error)

func (f TokenFunc) Generate() (string, error) {
	return f()
}
