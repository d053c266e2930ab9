package repository

import (
	"context"

	"taskboard/internal/domain"
)

// UserRepository defines persistence operations for User records. Users are
// never updated or deleted.
type UserRepository interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the first user with the given email in insertion order.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, email, name string) (*domain.User, error)
}
