package model

import "time"

// Task represents a unit of work owned by a user.
// JSON field names follow the public API contract.
type Task struct {
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
	UpdatedAt   time.Time  `json:"-"`
}

// IsOwnedBy returns true if the task belongs to the given user.
func (t *Task) IsOwnedBy(userID string) bool {
	return t.UserID == userID
}
