package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/taskdeck/taskdeck/internal/model"
)

// ErrTaskNotFound is returned when no task matches the id and
// ownership restriction. Not-owned and non-existent rows are
// indistinguishable to the caller.
var ErrTaskNotFound = errors.New("task not found")

const taskColumns = "id, project, assignee, title, description, priority, completed, due_date, completed_at, user_id, created_at, updated_at"

// CreateTask inserts a new task into the database.
func (r *Repository) CreateTask(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, project, assignee, title, description, priority, completed, due_date, completed_at, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Project,
		task.Assignee,
		task.Title,
		task.Description,
		task.Priority,
		task.Completed,
		task.DueDate,
		task.CompletedAt,
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by id, restricted to the given owner.
// An empty ownerID skips the ownership restriction (ADMIN callers).
func (r *Repository) GetTask(ctx context.Context, id, ownerID string) (*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	args := []any{id}

	if ownerID != "" {
		query += " AND user_id = $2"
		args = append(args, ownerID)
	}

	task, err := scanTask(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves a filtered, ordered page of tasks.
func (r *Repository) ListTasks(ctx context.Context, filter TaskFilter, sort TaskSort, limit, offset int) ([]*model.Task, error) {
	where, args, argIndex := filter.whereClause()

	query := `SELECT ` + taskColumns + ` FROM tasks` + where + sort.orderClause()
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// CountTasks returns the number of tasks matching the filter,
// before pagination.
func (r *Repository) CountTasks(ctx context.Context, filter TaskFilter) (int64, error) {
	where, args, _ := filter.whereClause()

	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// UpdateTask persists a task's mutable fields.
// The owning user reference is immutable and never updated.
func (r *Repository) UpdateTask(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET project = $2, assignee = $3, title = $4, description = $5, priority = $6,
		    completed = $7, due_date = $8, completed_at = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Project,
		task.Assignee,
		task.Title,
		task.Description,
		task.Priority,
		task.Completed,
		task.DueDate,
		task.CompletedAt,
		task.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// DeleteTask removes a task by id, restricted to the given owner.
// An empty ownerID skips the ownership restriction (ADMIN callers).
func (r *Repository) DeleteTask(ctx context.Context, id, ownerID string) error {
	query := `DELETE FROM tasks WHERE id = $1`
	args := []any{id}

	if ownerID != "" {
		query += " AND user_id = $2"
		args = append(args, ownerID)
	}

	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	return nil
}

// scanTask scans a single row into a Task model.
func scanTask(row pgx.Row) (*model.Task, error) {
	var task model.Task
	err := row.Scan(
		&task.ID,
		&task.Project,
		&task.Assignee,
		&task.Title,
		&task.Description,
		&task.Priority,
		&task.Completed,
		&task.DueDate,
		&task.CompletedAt,
		&task.UserID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
