package repository

import (
	"context"

	"taskboard/internal/domain"
)

// TaskRepository exposes persistence operations for Task records.
//
// It performs no access control: List with an empty ownerID returns every
// task, and callers must filter by owner before exposing results.
type TaskRepository interface {
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	// GetByID returns ErrNotFound when no task has the id.
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Create(ctx context.Context, task domain.Task) (*domain.Task, error)
	// Update merges patch into the task and returns it, or ErrNotFound if id is unknown.
	Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error)
	// Delete reports whether a task was removed.
	Delete(ctx context.Context, id string) (bool, error)
}
