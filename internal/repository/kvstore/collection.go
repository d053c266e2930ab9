// Package kvstore implements the repositories as whole collections stored
// under a single kv key. Every operation reads the full collection, and every
// mutation writes the full collection back.
package kvstore

import (
	"context"
	"sync"

	"taskboard/internal/kv"
)

const (
	tasksKey = "tasks"
	usersKey = "users"
)

// collection serialises read-modify-write cycles on one kv key so concurrent
// writers in this process cannot lose each other's updates.
type collection[T any] struct {
	mu    sync.Mutex
	store *kv.Store
	key   string
}

func (c *collection[T]) load(ctx context.Context) []T {
	var items []T
	if !c.store.Get(ctx, c.key, &items) {
		return []T{}
	}
	return items
}

func (c *collection[T]) read(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx), nil
}

// mutate runs fn over the current collection and persists the result when fn
// reports a change.
func (c *collection[T]) mutate(ctx context.Context, fn func(items []T) ([]T, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	items, changed := fn(c.load(ctx))
	if changed {
		c.store.Set(ctx, c.key, items)
	}
	return nil
}
