package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"taskboard/internal/domain"
	"taskboard/internal/repository"
)

type sampleTask struct {
	title, description string
	status             domain.TaskStatus
	priority           domain.TaskPriority
}

var sampleUsers = []struct {
	email, name string
	tasks       []sampleTask
}{
	{
		email: "demo@example.com",
		name:  "Demo User",
		tasks: []sampleTask{
			{"Set up project", "Prepare the development environment for the project", domain.TaskStatusCompleted, domain.TaskPriorityHigh},
			{"Implement authentication", "Build the login flow with CSRF tokens", domain.TaskStatusInProgress, domain.TaskPriorityHigh},
			{"Build user interface", "Create the screens used to manage tasks", domain.TaskStatusPending, domain.TaskPriorityMedium},
		},
	},
	{
		email: "test@example.com",
		name:  "Test User",
		tasks: []sampleTask{
			{"Review documentation", "Review and update the project documentation", domain.TaskStatusPending, domain.TaskPriorityLow},
			{"Unit tests", "Write unit tests for the API", domain.TaskStatusInProgress, domain.TaskPriorityHigh},
		},
	},
	{
		email: "admin@taskmanager.com",
		name:  "Admin User",
		tasks: []sampleTask{
			{"Production deploy", "Configure and run the production deployment", domain.TaskStatusPending, domain.TaskPriorityHigh},
		},
	},
}

// SeedSampleData creates the demo users and their tasks when no user exists
// yet. Tasks are only added if the task collection is empty too. It reports
// whether anything was written.
func SeedSampleData(ctx context.Context, users repository.UserRepository, tasks repository.TaskRepository, logger *logrus.Logger) (bool, error) {
	existing, err := users.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	existingTasks, err := tasks.List(ctx, "")
	if err != nil {
		return false, fmt.Errorf("list tasks: %w", err)
	}

	created := 0
	for _, sample := range sampleUsers {
		user, err := users.Create(ctx, sample.email, sample.name)
		if err != nil {
			return false, fmt.Errorf("seed user %s: %w", sample.email, err)
		}
		if len(existingTasks) > 0 {
			continue
		}
		for _, t := range sample.tasks {
			_, err := tasks.Create(ctx, domain.Task{
				Title:       t.title,
				Description: t.description,
				Status:      t.status,
				Priority:    t.priority,
				UserID:      user.ID,
			})
			if err != nil {
				return false, fmt.Errorf("seed task %q: %w", t.title, err)
			}
			created++
		}
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{"users": len(sampleUsers), "tasks": created}).Info("sample data created")
	}
	return true, nil
}
