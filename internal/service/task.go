package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// ErrTaskNotFound is returned for tasks that do not exist or are
// owned by another user. The two cases are indistinguishable.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the persistence surface the task service needs.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id, ownerID string) (*model.Task, error)
	ListTasks(ctx context.Context, filter repository.TaskFilter, sort repository.TaskSort, limit, offset int) ([]*model.Task, error)
	CountTasks(ctx context.Context, filter repository.TaskFilter) (int64, error)
	UpdateTask(ctx context.Context, task *model.Task) error
	DeleteTask(ctx context.Context, id, ownerID string) error
}

// TaskService handles task business logic.
type TaskService struct {
	tasks       TaskStore
	defaultPage int
	maxPage     int
	metrics     metrics.Recorder
	now         func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(tasks TaskStore, defaultPageSize, maxPageSize int, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		tasks:       tasks,
		defaultPage: defaultPageSize,
		maxPage:     maxPageSize,
		metrics:     recorder,
		now:         time.Now,
	}
}

// ownerScope returns the ownership restriction for the caller.
// ADMIN callers see every task; everyone else only their own.
func ownerScope(actor *model.AuthContext) string {
	if actor.IsAdmin() {
		return ""
	}
	return actor.UserID
}

// CreateTaskInput defines input for creating a task.
type CreateTaskInput struct {
	Project     string
	Assignee    string
	Title       string
	Description string
	Priority    string
	Completed   bool
	DueDate     *time.Time
	CompletedAt *time.Time
}

// CreateTask creates a task owned by the acting user.
func (s *TaskService) CreateTask(ctx context.Context, actor *model.AuthContext, input CreateTaskInput) (*model.Task, error) {
	if input.Title == "" {
		return nil, validationError("titulo is required")
	}
	if input.Project == "" {
		return nil, validationError("proyecto is required")
	}
	if input.Assignee == "" {
		return nil, validationError("responsable is required")
	}
	if input.Priority == "" {
		return nil, validationError("prioridad is required")
	}

	now := s.now().UTC()

	task := &model.Task{
		ID:          ulid.Make().String(),
		Project:     input.Project,
		Assignee:    input.Assignee,
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Completed:   input.Completed,
		DueDate:     input.DueDate,
		CompletedAt: input.CompletedAt,
		UserID:      actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if task.Completed && task.CompletedAt == nil {
		task.CompletedAt = &now
	}

	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.metrics.IncTaskCreated()

	return task, nil
}

// GetTask retrieves a single task visible to the acting user.
func (s *TaskService) GetTask(ctx context.Context, actor *model.AuthContext, id string) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, ownerScope(actor))
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListTasksInput defines input for listing tasks.
type ListTasksInput struct {
	Search    string
	Priority  string
	Project   string
	Completed *bool
	SortBy    string
	Ascending bool
	Page      int
	Limit     int
}

// ListTasksOutput defines output for listing tasks.
// TotalCount and TotalPages describe the full result set before
// pagination is applied.
type ListTasksOutput struct {
	Tasks      []*model.Task
	TotalCount int64
	Page       int
	Limit      int
	TotalPages int
}

// ListTasks retrieves a filtered, sorted page of tasks visible to
// the acting user.
func (s *TaskService) ListTasks(ctx context.Context, actor *model.AuthContext, input ListTasksInput) (*ListTasksOutput, error) {
	start := s.now()
	defer func() {
		s.metrics.ObserveListDuration(time.Since(start))
	}()

	page := input.Page
	if page < 1 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = s.defaultPage
	}
	if limit > s.maxPage {
		limit = s.maxPage
	}
	offset := (page - 1) * limit

	filter := repository.TaskFilter{
		OwnerID:   ownerScope(actor),
		Search:    input.Search,
		Priority:  input.Priority,
		Project:   input.Project,
		Completed: input.Completed,
	}
	sort := repository.TaskSort{
		Field:     input.SortBy,
		Ascending: input.Ascending,
	}

	total, err := s.tasks.CountTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	tasks, err := s.tasks.ListTasks(ctx, filter, sort, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*model.Task{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return &ListTasksOutput{
		Tasks:      tasks,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// UpdateTaskInput defines input for updating a task.
// Nil pointers leave the field untouched; the Clear flags distinguish
// an explicit null from an absent field.
type UpdateTaskInput struct {
	Project          *string
	Assignee         *string
	Title            *string
	Description      *string
	Priority         *string
	Completed        *bool
	DueDate          *time.Time
	ClearDueDate     bool
	CompletedAt      *time.Time
	ClearCompletedAt bool
}

// UpdateTask applies a partial update to a task visible to the
// acting user. Ownership of the task never changes.
func (s *TaskService) UpdateTask(ctx context.Context, actor *model.AuthContext, id string, input UpdateTaskInput) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, id, ownerScope(actor))
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, validationError("titulo cannot be empty")
		}
		task.Title = *input.Title
	}
	if input.Project != nil {
		if *input.Project == "" {
			return nil, validationError("proyecto cannot be empty")
		}
		task.Project = *input.Project
	}
	if input.Assignee != nil {
		if *input.Assignee == "" {
			return nil, validationError("responsable cannot be empty")
		}
		task.Assignee = *input.Assignee
	}
	if input.Priority != nil {
		if *input.Priority == "" {
			return nil, validationError("prioridad cannot be empty")
		}
		task.Priority = *input.Priority
	}
	if input.Description != nil {
		task.Description = *input.Description
	}

	now := s.now().UTC()

	if input.Completed != nil {
		task.Completed = *input.Completed
		if *input.Completed {
			if task.CompletedAt == nil {
				task.CompletedAt = &now
			}
		} else {
			task.CompletedAt = nil
		}
	}

	// Explicit completion timestamps win over the derived one.
	if input.CompletedAt != nil {
		task.CompletedAt = input.CompletedAt
	}
	if input.ClearCompletedAt {
		task.CompletedAt = nil
	}

	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.ClearDueDate {
		task.DueDate = nil
	}

	task.UpdatedAt = now

	if err := s.tasks.UpdateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.metrics.IncTaskUpdated()

	return task, nil
}

// DeleteTask removes a task visible to the acting user.
func (s *TaskService) DeleteTask(ctx context.Context, actor *model.AuthContext, id string) error {
	if err := s.tasks.DeleteTask(ctx, id, ownerScope(actor)); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.metrics.IncTaskDeleted()

	return nil
}
