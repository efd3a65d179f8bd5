package dto

import (
	"encoding/json"
	"net/url"
	"strconv"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

// CreateTaskRequest represents the request body for creating a task.
type CreateTaskRequest struct {
	Project     string     `json:"proyecto"`
	Assignee    string     `json:"responsable"`
	Title       string     `json:"titulo"`
	Description string     `json:"descripcion"`
	Priority    string     `json:"prioridad"`
	Completed   bool       `json:"completada"`
	DueDate     *time.Time `json:"fechaVencimiento"`
	CompletedAt *time.Time `json:"fechaCulminacion"`
}

// NullableTime distinguishes an absent JSON field from an explicit
// null. Set is true whenever the field appeared in the payload.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// UpdateTaskRequest represents the request body for updating a task.
// Nil pointers mean the field was absent from the payload.
type UpdateTaskRequest struct {
	Project     *string      `json:"proyecto"`
	Assignee    *string      `json:"responsable"`
	Title       *string      `json:"titulo"`
	Description *string      `json:"descripcion"`
	Priority    *string      `json:"prioridad"`
	Completed   *bool        `json:"completada"`
	DueDate     NullableTime `json:"fechaVencimiento"`
	CompletedAt NullableTime `json:"fechaCulminacion"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string     `json:"id"`
	Project     string     `json:"proyecto"`
	Assignee    string     `json:"responsable"`
	Title       string     `json:"titulo"`
	Description string     `json:"descripcion,omitempty"`
	Priority    string     `json:"prioridad"`
	Completed   bool       `json:"completada"`
	DueDate     *time.Time `json:"fechaVencimiento,omitempty"`
	CompletedAt *time.Time `json:"fechaCulminacion,omitempty"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"fechaCreacion"`
}

// TaskListResponse represents a paginated task listing.
type TaskListResponse struct {
	Tasks       []TaskResponse `json:"tasks"`
	TotalCount  int64          `json:"totalCount"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"limit"`
	TotalPages  int            `json:"totalPages"`
}

// ListTasksQuery represents parsed query parameters for listing tasks.
type ListTasksQuery struct {
	Search    string
	Priority  string
	Project   string
	Completed *bool
	SortBy    string
	Ascending bool
	Page      int
	Limit     int
}

// ParseListTasksQuery parses raw query parameters.
// Non-numeric page/limit fall back to zero so the service applies
// its defaults. isCompleted accepts the literals "true" and "false";
// any other non-empty value reads as false.
func ParseListTasksQuery(values url.Values) ListTasksQuery {
	q := ListTasksQuery{
		Search:    values.Get("search"),
		Priority:  values.Get("priority"),
		Project:   values.Get("proyecto"),
		SortBy:    values.Get("sortBy"),
		Ascending: values.Get("sortDirection") == "asc",
	}

	if raw := values.Get("isCompleted"); raw != "" {
		completed := raw == "true"
		q.Completed = &completed
	}

	if raw := values.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			q.Page = parsed
		}
	}
	if raw := values.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			q.Limit = parsed
		}
	}

	return q
}

// ToTaskResponse converts a Task model to TaskResponse DTO.
func ToTaskResponse(task *model.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Project:     task.Project,
		Assignee:    task.Assignee,
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Completed:   task.Completed,
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		UserID:      task.UserID,
		CreatedAt:   task.CreatedAt,
	}
}

// ToTaskListResponse converts a page of tasks to TaskListResponse.
func ToTaskListResponse(tasks []*model.Task, total int64, page, limit, totalPages int) *TaskListResponse {
	responses := make([]TaskResponse, len(tasks))
	for i, task := range tasks {
		responses[i] = ToTaskResponse(task)
	}
	return &TaskListResponse{
		Tasks:       responses,
		TotalCount:  total,
		CurrentPage: page,
		Limit:       limit,
		TotalPages:  totalPages,
	}
}
