package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// fakeTaskStore keeps tasks in a map and records the last list call
// so tests can assert on the filter the service built.
type fakeTaskStore struct {
	tasks map[string]*model.Task

	lastFilter repository.TaskFilter
	lastSort   repository.TaskSort
	lastLimit  int
	lastOffset int

	listResult []*model.Task
	countTotal int64
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[string]*model.Task)}
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task *model.Task) error {
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, id, ownerID string) (*model.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	if ownerID != "" && task.UserID != ownerID {
		return nil, repository.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) ListTasks(ctx context.Context, filter repository.TaskFilter, sort repository.TaskSort, limit, offset int) ([]*model.Task, error) {
	f.lastFilter = filter
	f.lastSort = sort
	f.lastLimit = limit
	f.lastOffset = offset
	return f.listResult, nil
}

func (f *fakeTaskStore) CountTasks(ctx context.Context, filter repository.TaskFilter) (int64, error) {
	f.lastFilter = filter
	return f.countTotal, nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, task *model.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, id, ownerID string) error {
	task, ok := f.tasks[id]
	if !ok {
		return repository.ErrTaskNotFound
	}
	if ownerID != "" && task.UserID != ownerID {
		return repository.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

var (
	userActor  = &model.AuthContext{UserID: "user-1", Email: "ana@example.com", Role: model.RoleUser}
	otherActor = &model.AuthContext{UserID: "user-2", Email: "bob@example.com", Role: model.RoleUser}
	adminActor = &model.AuthContext{UserID: "admin-1", Email: "root@example.com", Role: model.RoleAdmin}
)

func newTestTaskService(store *fakeTaskStore) *TaskService {
	return NewTaskService(store, 10, 100, nil)
}

func TestTaskService_CreateTask(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	task, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:  "website",
		Assignee: "ana",
		Title:    "Fix login form",
		Priority: "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if task.ID == "" {
		t.Error("expected generated task ID")
	}
	if task.UserID != "user-1" {
		t.Errorf("owner = %q, want acting user", task.UserID)
	}
	if task.Completed {
		t.Error("new task should not be completed")
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
	if _, ok := store.tasks[task.ID]; !ok {
		t.Error("task not persisted")
	}
}

func TestTaskService_CreateTask_IDsAreMonotonic(t *testing.T) {
	t.Parallel()

	svc := newTestTaskService(newFakeTaskStore())

	var prev string
	for i := 0; i < 10; i++ {
		task, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
			Project:  "p",
			Assignee: "a",
			Title:    "t",
			Priority: "media",
		})
		if err != nil {
			t.Fatalf("CreateTask() error = %v", err)
		}
		if prev != "" && task.ID <= prev {
			t.Fatalf("IDs not increasing: %q after %q", task.ID, prev)
		}
		prev = task.ID
	}
}

func TestTaskService_CreateTask_CompletedStampsTimestamp(t *testing.T) {
	t.Parallel()

	svc := newTestTaskService(newFakeTaskStore())

	task, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:   "p",
		Assignee:  "a",
		Title:     "t",
		Priority:  "baja",
		Completed: true,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if task.CompletedAt == nil {
		t.Error("completed task must carry a completion timestamp")
	}
}

func TestTaskService_CreateTask_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{"missing title", CreateTaskInput{Project: "p", Assignee: "a", Priority: "alta"}},
		{"missing project", CreateTaskInput{Title: "t", Assignee: "a", Priority: "alta"}},
		{"missing assignee", CreateTaskInput{Title: "t", Project: "p", Priority: "alta"}},
		{"missing priority", CreateTaskInput{Title: "t", Project: "p", Assignee: "a"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestTaskService(newFakeTaskStore())
			_, err := svc.CreateTask(context.Background(), userActor, tt.input)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("CreateTask() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestTaskService_GetTask_Ownership(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	created, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:  "p",
		Assignee: "a",
		Title:    "t",
		Priority: "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	// Owner sees it
	if _, err := svc.GetTask(context.Background(), userActor, created.ID); err != nil {
		t.Errorf("owner GetTask() error = %v", err)
	}

	// Another user gets not-found, never forbidden
	if _, err := svc.GetTask(context.Background(), otherActor, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("other user GetTask() error = %v, want ErrTaskNotFound", err)
	}

	// Admin bypasses ownership
	if _, err := svc.GetTask(context.Background(), adminActor, created.ID); err != nil {
		t.Errorf("admin GetTask() error = %v", err)
	}
}

func TestTaskService_ListTasks_Scoping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		actor     *model.AuthContext
		wantOwner string
	}{
		{"regular user scoped to self", userActor, "user-1"},
		{"admin unrestricted", adminActor, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeTaskStore()
			svc := newTestTaskService(store)

			if _, err := svc.ListTasks(context.Background(), tt.actor, ListTasksInput{}); err != nil {
				t.Fatalf("ListTasks() error = %v", err)
			}

			if store.lastFilter.OwnerID != tt.wantOwner {
				t.Errorf("filter owner = %q, want %q", store.lastFilter.OwnerID, tt.wantOwner)
			}
		})
	}
}

func TestTaskService_ListTasks_Pagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		page, limit    int
		total          int64
		wantLimit      int
		wantOffset     int
		wantPage       int
		wantTotalPages int
	}{
		{"defaults", 0, 0, 25, 10, 0, 1, 3},
		{"second page", 2, 10, 25, 10, 10, 2, 3},
		{"limit capped", 1, 500, 25, 100, 0, 1, 1},
		{"negative page clamped", -3, 10, 5, 10, 0, 1, 1},
		{"empty result", 1, 10, 0, 10, 0, 1, 0},
		{"exact fit", 1, 5, 10, 5, 0, 1, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeTaskStore()
			store.countTotal = tt.total
			svc := newTestTaskService(store)

			out, err := svc.ListTasks(context.Background(), userActor, ListTasksInput{
				Page:  tt.page,
				Limit: tt.limit,
			})
			if err != nil {
				t.Fatalf("ListTasks() error = %v", err)
			}

			if store.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", store.lastLimit, tt.wantLimit)
			}
			if store.lastOffset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", store.lastOffset, tt.wantOffset)
			}
			if out.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", out.Page, tt.wantPage)
			}
			if out.TotalCount != tt.total {
				t.Errorf("totalCount = %d, want %d", out.TotalCount, tt.total)
			}
			if out.TotalPages != tt.wantTotalPages {
				t.Errorf("totalPages = %d, want %d", out.TotalPages, tt.wantTotalPages)
			}
			if out.Tasks == nil {
				t.Error("tasks must be non-nil even when empty")
			}
		})
	}
}

func TestTaskService_ListTasks_FilterPassthrough(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	completed := true
	_, err := svc.ListTasks(context.Background(), userActor, ListTasksInput{
		Search:    "login",
		Priority:  "alta",
		Project:   "website",
		Completed: &completed,
		SortBy:    "fechaVencimiento",
		Ascending: true,
	})
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}

	if store.lastFilter.Search != "login" || store.lastFilter.Priority != "alta" || store.lastFilter.Project != "website" {
		t.Errorf("filter = %+v, want search/priority/project passed through", store.lastFilter)
	}
	if store.lastFilter.Completed == nil || !*store.lastFilter.Completed {
		t.Error("completed filter not passed through")
	}
	if store.lastSort.Field != "fechaVencimiento" || !store.lastSort.Ascending {
		t.Errorf("sort = %+v, want fechaVencimiento ascending", store.lastSort)
	}
}

func TestTaskService_UpdateTask_CompletionSemantics(t *testing.T) {
	t.Parallel()

	boolPtr := func(b bool) *bool { return &b }
	timePtr := func(t time.Time) *time.Time { return &t }
	explicit := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		setup       CreateTaskInput
		input       UpdateTaskInput
		wantDone    bool
		wantStamped bool
		wantExact   *time.Time
	}{
		{
			name:        "completing stamps now",
			setup:       CreateTaskInput{Project: "p", Assignee: "a", Title: "t", Priority: "alta"},
			input:       UpdateTaskInput{Completed: boolPtr(true)},
			wantDone:    true,
			wantStamped: true,
		},
		{
			name:     "uncompleting clears timestamp",
			setup:    CreateTaskInput{Project: "p", Assignee: "a", Title: "t", Priority: "alta", Completed: true},
			input:    UpdateTaskInput{Completed: boolPtr(false)},
			wantDone: false,
		},
		{
			name:        "explicit timestamp wins",
			setup:       CreateTaskInput{Project: "p", Assignee: "a", Title: "t", Priority: "alta"},
			input:       UpdateTaskInput{Completed: boolPtr(true), CompletedAt: timePtr(explicit)},
			wantDone:    true,
			wantStamped: true,
			wantExact:   &explicit,
		},
		{
			name:     "explicit null clears regardless",
			setup:    CreateTaskInput{Project: "p", Assignee: "a", Title: "t", Priority: "alta", Completed: true},
			input:    UpdateTaskInput{ClearCompletedAt: true},
			wantDone: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newFakeTaskStore()
			svc := newTestTaskService(store)

			created, err := svc.CreateTask(context.Background(), userActor, tt.setup)
			if err != nil {
				t.Fatalf("CreateTask() error = %v", err)
			}

			updated, err := svc.UpdateTask(context.Background(), userActor, created.ID, tt.input)
			if err != nil {
				t.Fatalf("UpdateTask() error = %v", err)
			}

			if updated.Completed != tt.wantDone {
				t.Errorf("completed = %v, want %v", updated.Completed, tt.wantDone)
			}
			if tt.wantStamped && updated.CompletedAt == nil {
				t.Error("expected completion timestamp")
			}
			if !tt.wantStamped && updated.CompletedAt != nil {
				t.Errorf("completedAt = %v, want nil", updated.CompletedAt)
			}
			if tt.wantExact != nil && (updated.CompletedAt == nil || !updated.CompletedAt.Equal(*tt.wantExact)) {
				t.Errorf("completedAt = %v, want %v", updated.CompletedAt, tt.wantExact)
			}
		})
	}
}

func TestTaskService_UpdateTask_PartialFields(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	created, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:     "website",
		Assignee:    "ana",
		Title:       "Fix login form",
		Description: "broken on mobile",
		Priority:    "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	newTitle := "Fix signup form"
	updated, err := svc.UpdateTask(context.Background(), userActor, created.ID, UpdateTaskInput{
		Title: &newTitle,
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	if updated.Title != newTitle {
		t.Errorf("title = %q, want %q", updated.Title, newTitle)
	}
	// Untouched fields survive
	if updated.Project != "website" || updated.Assignee != "ana" || updated.Description != "broken on mobile" {
		t.Errorf("unrelated fields changed: %+v", updated)
	}
	if updated.UserID != "user-1" {
		t.Errorf("owner changed to %q", updated.UserID)
	}
}

func TestTaskService_UpdateTask_EmptyRequiredField(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	created, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:  "p",
		Assignee: "a",
		Title:    "t",
		Priority: "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	empty := ""
	_, err = svc.UpdateTask(context.Background(), userActor, created.ID, UpdateTaskInput{Title: &empty})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("UpdateTask() error = %v, want ValidationError", err)
	}
}

func TestTaskService_UpdateTask_Ownership(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	created, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:  "p",
		Assignee: "a",
		Title:    "t",
		Priority: "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	newTitle := "hijacked"
	if _, err := svc.UpdateTask(context.Background(), otherActor, created.ID, UpdateTaskInput{Title: &newTitle}); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("other user UpdateTask() error = %v, want ErrTaskNotFound", err)
	}

	if _, err := svc.UpdateTask(context.Background(), adminActor, created.ID, UpdateTaskInput{Title: &newTitle}); err != nil {
		t.Errorf("admin UpdateTask() error = %v", err)
	}
}

func TestTaskService_DeleteTask(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	svc := newTestTaskService(store)

	created, err := svc.CreateTask(context.Background(), userActor, CreateTaskInput{
		Project:  "p",
		Assignee: "a",
		Title:    "t",
		Priority: "alta",
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}

	if err := svc.DeleteTask(context.Background(), otherActor, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("other user DeleteTask() error = %v, want ErrTaskNotFound", err)
	}

	if err := svc.DeleteTask(context.Background(), userActor, created.ID); err != nil {
		t.Errorf("owner DeleteTask() error = %v", err)
	}

	if err := svc.DeleteTask(context.Background(), userActor, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("repeat DeleteTask() error = %v, want ErrTaskNotFound", err)
	}
}
