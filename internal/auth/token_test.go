package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("user-1", "ana@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	identity, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if identity.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", identity.UserID, "user-1")
	}
	if identity.Email != "ana@example.com" {
		t.Errorf("Email = %q, want %q", identity.Email, "ana@example.com")
	}
	if identity.Role != model.RoleUser {
		t.Errorf("Role = %q, want %q", identity.Role, model.RoleUser)
	}
}

func TestTokenService_AdminRoleRoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.Issue("admin-1", "admin@example.com", model.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	identity, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	if !identity.IsAdmin() {
		t.Error("expected admin identity")
	}
}

func TestTokenService_Expired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", time.Hour)

	issued := time.Now()
	svc.now = func() time.Time { return issued }

	token, err := svc.Issue("user-1", "ana@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Just before expiry the token is still valid.
	svc.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := svc.Verify(token); err != nil {
		t.Fatalf("token should still be valid before expiry: %v", err)
	}

	// One hour and change later it is not.
	svc.now = func() time.Time { return issued.Add(61 * time.Minute) }
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.Issue("user-1", "ana@example.com", model.RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestTokenService_Malformed(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("test-secret", time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-jwt"},
		{"truncated", "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := svc.Verify(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
