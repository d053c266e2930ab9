package kvstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"taskboard/internal/clock"
	"taskboard/internal/domain"
	"taskboard/internal/kv"
	"taskboard/internal/repository"
)

type UserRepository struct {
	users *collection[domain.User]
	clock clock.Clock
}

func NewUserRepository(store *kv.Store, clk clock.Clock) *UserRepository {
	if clk == nil {
		clk = clock.Real{}
	}
	return &UserRepository{
		users: &collection[domain.User]{store: store, key: usersKey},
		clock: clk,
	}
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	users, err := r.users.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r *UserRepository) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	users, err := r.users.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	for i := range users {
		if match(users[i]) {
			return &users[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

// Create appends a new user. Email uniqueness is not enforced here.
func (r *UserRepository) Create(ctx context.Context, email, name string) (*domain.User, error) {
	user := domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: r.clock.Now().UTC(),
	}

	err := r.users.mutate(ctx, func(users []domain.User) ([]domain.User, bool) {
		return append(users, user), true
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
