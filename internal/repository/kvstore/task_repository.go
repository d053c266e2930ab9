package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/clock"
	"taskboard/internal/domain"
	"taskboard/internal/kv"
	"taskboard/internal/repository"
)

type TaskRepository struct {
	tasks *collection[domain.Task]
	clock clock.Clock
}

func NewTaskRepository(store *kv.Store, clk clock.Clock) *TaskRepository {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TaskRepository{
		tasks: &collection[domain.Task]{store: store, key: tasksKey},
		clock: clk,
	}
}

func (r *TaskRepository) List(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, err := r.tasks.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if ownerID == "" {
		return tasks, nil
	}

	owned := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.UserID == ownerID {
			owned = append(owned, task)
		}
	}
	return owned, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	tasks, err := r.tasks.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

// Create stores a copy of task with a fresh id and timestamps.
func (r *TaskRepository) Create(ctx context.Context, task domain.Task) (*domain.Task, error) {
	now := r.clock.Now().UTC()
	task.ID = uuid.NewString()
	task.CreatedAt = now
	task.UpdatedAt = now

	err := r.tasks.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, bool) {
		return append(tasks, task), true
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch domain.TaskPatch) (*domain.Task, error) {
	var updated *domain.Task
	err := r.tasks.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, bool) {
		for i := range tasks {
			if tasks[i].ID != id {
				continue
			}
			patch.Apply(&tasks[i])

			// updatedAt moves strictly forward even when the clock does not
			now := r.clock.Now().UTC()
			if !now.After(tasks[i].UpdatedAt) {
				now = tasks[i].UpdatedAt.Add(time.Nanosecond)
			}
			tasks[i].UpdatedAt = now

			task := tasks[i]
			updated = &task
			return tasks, true
		}
		return tasks, false
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	if updated == nil {
		return nil, repository.ErrNotFound
	}
	return updated, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := r.tasks.mutate(ctx, func(tasks []domain.Task) ([]domain.Task, bool) {
		kept := tasks[:0]
		for _, task := range tasks {
			if task.ID == id {
				removed = true
				continue
			}
			kept = append(kept, task)
		}
		return kept, removed
	})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return removed, nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
