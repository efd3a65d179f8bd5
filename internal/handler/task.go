package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/handler/dto"
	"github.com/taskdeck/taskdeck/internal/service"
)

// TaskHandler handles HTTP requests for task operations.
// Every route it serves sits behind the auth middleware, so the
// request context always carries a resolved identity.
type TaskHandler struct {
	svc    *service.TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /api/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustAuthFromContext(r.Context())

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.svc.CreateTask(r.Context(), actor, service.CreateTaskInput{
		Project:     req.Project,
		Assignee:    req.Assignee,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
		DueDate:     req.DueDate,
		CompletedAt: req.CompletedAt,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_created", "task_id", task.ID, "user_id", actor.UserID)

	writeJSON(w, http.StatusCreated, dto.ToTaskResponse(task))
}

// List handles GET /api/tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustAuthFromContext(r.Context())

	query := dto.ParseListTasksQuery(r.URL.Query())

	result, err := h.svc.ListTasks(r.Context(), actor, service.ListTasksInput{
		Search:    query.Search,
		Priority:  query.Priority,
		Project:   query.Project,
		Completed: query.Completed,
		SortBy:    query.SortBy,
		Ascending: query.Ascending,
		Page:      query.Page,
		Limit:     query.Limit,
	})
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskListResponse(
		result.Tasks,
		result.TotalCount,
		result.Page,
		result.Limit,
		result.TotalPages,
	))
}

// Get handles GET /api/tasks/{id}.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Task ID is required")
		return
	}

	task, err := h.svc.GetTask(r.Context(), actor, id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// Update handles PUT /api/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Task ID is required")
		return
	}

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	input := service.UpdateTaskInput{
		Project:     req.Project,
		Assignee:    req.Assignee,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Completed:   req.Completed,
	}

	// Absent field: leave alone. Explicit null: clear.
	if req.DueDate.Set {
		if req.DueDate.Value != nil {
			input.DueDate = req.DueDate.Value
		} else {
			input.ClearDueDate = true
		}
	}
	if req.CompletedAt.Set {
		if req.CompletedAt.Value != nil {
			input.CompletedAt = req.CompletedAt.Value
		} else {
			input.ClearCompletedAt = true
		}
	}

	task, err := h.svc.UpdateTask(r.Context(), actor, id, input)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_updated", "task_id", task.ID, "user_id", actor.UserID)

	writeJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// Delete handles DELETE /api/tasks/{id}.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := auth.MustAuthFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "MISSING_ID", "Task ID is required")
		return
	}

	if err := h.svc.DeleteTask(r.Context(), actor, id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("task_deleted", "task_id", id, "user_id", actor.UserID)

	w.WriteHeader(http.StatusNoContent)
}

// handleServiceError maps task service errors to HTTP responses.
func (h *TaskHandler) handleServiceError(w http.ResponseWriter, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", ve.Error())
	case errors.Is(err, service.ErrTaskNotFound):
		h.writeError(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found")
	default:
		h.logger.Error("internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// writeError writes an error response.
func (h *TaskHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
