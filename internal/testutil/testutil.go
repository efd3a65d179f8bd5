package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskdeck/taskdeck/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// applyMigration runs a single migration file in the given direction.
func applyMigration(ctx context.Context, pool *pgxpool.Pool, name, direction string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	path := filepath.Join(root, "migrations", fmt.Sprintf("%s.%s.sql", name, direction))
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s migration: %w", direction, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s migration %s: %w", direction, name, err)
	}

	return nil
}

// resetSchema applies the down then up migration for one schema.
func resetSchema(ctx context.Context, pool *pgxpool.Pool, name string) error {
	if err := applyMigration(ctx, pool, name, "down"); err != nil {
		return err
	}
	return applyMigration(ctx, pool, name, "up")
}

// ResetUsersSchema drops and recreates both schemas for tests.
// Tasks reference users, so tasks must be gone before users can drop
// and users must exist before tasks can come back.
func ResetUsersSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := applyMigration(ctx, pool, "000002_tasks", "down"); err != nil {
		return err
	}
	if err := resetSchema(ctx, pool, "000001_users"); err != nil {
		return err
	}
	return applyMigration(ctx, pool, "000002_tasks", "up")
}

// ResetTasksSchema drops and recreates the tasks schema for tests.
func ResetTasksSchema(ctx context.Context, pool *pgxpool.Pool) error {
	return resetSchema(ctx, pool, "000002_tasks")
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	now := time.Now().UTC()
	return &model.User{
		ID:           UniqueID("user"),
		Email:        email,
		PasswordHash: fmt.Sprintf("$argon2id$test-%d", now.UnixNano()),
		Role:         model.RoleUser,
		CreatedAt:    now,
	}
}

// NewTestTask creates a test task owned by the given user.
func NewTestTask(t testing.TB, userID string) *model.Task {
	t.Helper()
	now := time.Now().UTC()
	return &model.Task{
		ID:        UniqueID("task"),
		Project:   "test-project",
		Assignee:  "test-assignee",
		Title:     "test task",
		Priority:  "media",
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
