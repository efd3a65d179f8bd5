package repository

import (
	"fmt"
	"strings"
)

// TaskFilter defines filters for listing tasks.
// All supplied predicates are combined with AND.
type TaskFilter struct {
	// OwnerID restricts results to tasks owned by that user.
	// Empty means no ownership restriction (ADMIN callers).
	OwnerID string

	// Search matches a substring of title or description.
	Search string

	// Priority matches the priority label exactly.
	Priority string

	// Project matches a substring of the project name.
	Project string

	// Completed filters on the completion flag when non-nil.
	Completed *bool
}

// TaskSort selects the ordering for task listings.
// Field uses API field names and is resolved through a fixed
// allow-list; unknown fields fall back to creation time descending.
type TaskSort struct {
	Field     string
	Ascending bool
}

// taskSortColumns maps sortable API field names to column identifiers.
// Caller-supplied sort keys never reach SQL as identifiers directly.
var taskSortColumns = map[string]string{
	"titulo":           "title",
	"proyecto":         "project",
	"responsable":      "assignee",
	"prioridad":        "priority",
	"completada":       "completed",
	"fechaCreacion":    "created_at",
	"fechaVencimiento": "due_date",
	"fechaCulminacion": "completed_at",
}

// whereClause renders the filter into a WHERE fragment with positional
// args, starting at $1. Returns the fragment, the args, and the next
// free placeholder index.
func (f TaskFilter) whereClause() (string, []any, int) {
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")

	args := []any{}
	argIndex := 1

	if f.OwnerID != "" {
		fmt.Fprintf(&sb, " AND user_id = $%d", argIndex)
		args = append(args, f.OwnerID)
		argIndex++
	}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		fmt.Fprintf(&sb, " AND (title LIKE $%d OR description LIKE $%d)", argIndex, argIndex+1)
		args = append(args, pattern, pattern)
		argIndex += 2
	}

	if f.Priority != "" {
		fmt.Fprintf(&sb, " AND priority = $%d", argIndex)
		args = append(args, f.Priority)
		argIndex++
	}

	if f.Project != "" {
		fmt.Fprintf(&sb, " AND project LIKE $%d", argIndex)
		args = append(args, "%"+f.Project+"%")
		argIndex++
	}

	if f.Completed != nil {
		fmt.Fprintf(&sb, " AND completed = $%d", argIndex)
		args = append(args, *f.Completed)
		argIndex++
	}

	return sb.String(), args, argIndex
}

// orderClause renders the sort into an ORDER BY fragment.
// Ties are broken by id so pagination stays stable.
func (s TaskSort) orderClause() string {
	column, ok := taskSortColumns[s.Field]
	if !ok {
		return " ORDER BY created_at DESC, id DESC"
	}

	direction := "DESC"
	if s.Ascending {
		direction = "ASC"
	}

	return fmt.Sprintf(" ORDER BY %s %s, id DESC", column, direction)
}
