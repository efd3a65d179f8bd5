package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

type fakeVerifier struct {
	identity *model.AuthContext
	err      error
}

func (f *fakeVerifier) Verify(token string) (*model.AuthContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeUserStore struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuth_MissingToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"bare scheme", "Bearer "},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := AuthConfig{
				Logger: discardLogger(),
				Tokens: &fakeVerifier{identity: &model.AuthContext{UserID: "u1"}},
				Users:  &fakeUserStore{},
			}

			handler := Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be reached")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{
		Logger: discardLogger(),
		Tokens: &fakeVerifier{err: auth.ErrInvalidToken},
		Users:  &fakeUserStore{},
	}

	handler := Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestAuth_UnknownPrincipal(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{
		Logger: discardLogger(),
		Tokens: &fakeVerifier{identity: &model.AuthContext{UserID: "ghost", Role: model.RoleUser}},
		Users:  &fakeUserStore{users: map[string]*model.User{}},
	}

	handler := Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuth_StoreError(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{
		Logger: discardLogger(),
		Tokens: &fakeVerifier{identity: &model.AuthContext{UserID: "u1", Role: model.RoleUser}},
		Users:  &fakeUserStore{err: errors.New("connection refused")},
	}

	handler := Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAuth_Success(t *testing.T) {
	t.Parallel()

	cfg := AuthConfig{
		Logger: discardLogger(),
		Tokens: &fakeVerifier{identity: &model.AuthContext{UserID: "u1", Role: model.RoleUser}},
		Users: &fakeUserStore{users: map[string]*model.User{
			"u1": {ID: "u1", Email: "ana@example.com", Role: model.RoleAdmin},
		}},
	}

	var seen *model.AuthContext
	handler := Auth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if seen == nil {
		t.Fatal("auth context not injected")
	}
	// Role comes from the store, not the token
	if seen.Role != model.RoleAdmin {
		t.Errorf("role = %q, want ADMIN from store", seen.Role)
	}
	if seen.Email != "ana@example.com" {
		t.Errorf("email = %q, want store value", seen.Email)
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"bearer token", "Bearer abc.def.ghi", "abc.def.ghi"},
		{"trailing space trimmed", "Bearer abc ", "abc"},
		{"basic auth ignored", "Basic dXNlcg==", ""},
		{"lowercase scheme ignored", "bearer abc", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if got := extractBearerToken(req); got != tt.want {
				t.Errorf("extractBearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}
