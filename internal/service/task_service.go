package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"taskboard/internal/apperr"
	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

// CreateTaskInput is the payload accepted when creating a task. A nil Status
// or Priority selects the default; a present but empty one is invalid.
type CreateTaskInput struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Status      *domain.TaskStatus   `json:"status,omitempty"`
	Priority    *domain.TaskPriority `json:"priority,omitempty"`
}

// UnmarshalJSON treats an explicit null status or priority as an empty value
// rather than an absent one.
func (in *CreateTaskInput) UnmarshalJSON(data []byte) error {
	type plain CreateTaskInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if _, ok := fields["status"]; ok && p.Status == nil {
		p.Status = new(domain.TaskStatus)
	}
	if _, ok := fields["priority"]; ok && p.Priority == nil {
		p.Priority = new(domain.TaskPriority)
	}
	*in = CreateTaskInput(p)
	return nil
}

// UpdateTaskInput is a partial update; nil fields are left as they are.
type UpdateTaskInput struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *domain.TaskStatus   `json:"status,omitempty"`
	Priority    *domain.TaskPriority `json:"priority,omitempty"`
}

// TaskService applies validation and ownership rules on top of the task
// repository. Every method acts on behalf of userID and returns *apperr.Error
// values on failure.
type TaskService interface {
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	GetTask(ctx context.Context, userID, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID, id string, in UpdateTaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
}

type taskService struct {
	tasks repository.TaskRepository
}

func NewTaskService(tasks repository.TaskRepository) TaskService {
	return &taskService{tasks: tasks}
}

func (s *taskService) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := s.tasks.List(ctx, userID)
	if err != nil {
		return nil, apperr.NewInternal("Internal server error", err)
	}
	return tasks, nil
}

func (s *taskService) GetTask(ctx context.Context, userID, id string) (*domain.Task, error) {
	return s.owned(ctx, userID, id)
}

// owned loads the task and checks that userID owns it.
func (s *taskService) owned(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("Internal server error", err)
	}
	if task.UserID != userID {
		return nil, apperr.NewAuthorization("Access denied")
	}
	return task, nil
}

func (s *taskService) CreateTask(ctx context.Context, userID string, in CreateTaskInput) (*domain.Task, error) {
	if blank(in.Title) || blank(in.Description) {
		return nil, apperr.NewValidation("Title and description are required")
	}
	status, priority := domain.TaskStatusPending, domain.TaskPriorityMedium
	if in.Status != nil {
		status = *in.Status
	}
	if in.Priority != nil {
		priority = *in.Priority
	}
	if !status.Valid() {
		return nil, apperr.NewValidation("Invalid status value")
	}
	if !priority.Valid() {
		return nil, apperr.NewValidation("Invalid priority value")
	}

	task, err := s.tasks.Create(ctx, domain.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		UserID:      userID,
	})
	if err != nil {
		return nil, apperr.NewInternal("Internal server error", err)
	}
	return task, nil
}

func (s *taskService) UpdateTask(ctx context.Context, userID, id string, in UpdateTaskInput) (*domain.Task, error) {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if (in.Title != nil && blank(*in.Title)) || (in.Description != nil && blank(*in.Description)) {
		return nil, apperr.NewValidation("Title and description cannot be empty")
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperr.NewValidation("Invalid status value")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, apperr.NewValidation("Invalid priority value")
	}

	task, err := s.tasks.Update(ctx, id, domain.TaskPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
	})
	if errors.Is(err, repository.ErrNotFound) {
		// deleted between the ownership check and the write
		return nil, apperr.NewNotFound("Task not found")
	}
	if err != nil {
		return nil, apperr.NewInternal("Failed to update task", err)
	}
	return task, nil
}

func (s *taskService) DeleteTask(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	removed, err := s.tasks.Delete(ctx, id)
	if err != nil {
		return apperr.NewInternal("Failed to delete task", err)
	}
	if !removed {
		return apperr.NewInternal("Failed to delete task", nil)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
