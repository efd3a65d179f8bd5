package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/metrics"
	"github.com/taskdeck/taskdeck/internal/model"
	"github.com/taskdeck/taskdeck/internal/repository"
)

// TokenVerifier validates a bearer token and returns the identity it encodes.
type TokenVerifier interface {
	Verify(token string) (*model.AuthContext, error)
}

// PrincipalStore resolves a user id to a stored user record.
type PrincipalStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// PrincipalCache is an optional read-through cache for resolved principals.
type PrincipalCache interface {
	GetPrincipal(ctx context.Context, userID string) (*model.AuthContext, error)
	SetPrincipal(ctx context.Context, principal *model.AuthContext) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger  *slog.Logger
	Tokens  TokenVerifier
	Users   PrincipalStore
	Cache   PrincipalCache
	Metrics metrics.Recorder
}

// Auth returns a middleware that authenticates API requests.
// It extracts the bearer token from the Authorization header, verifies
// it, resolves the identity against the credential store, and injects
// the auth context into the request.
//
// Failure modes, in order: missing/non-bearer header is 401, a token
// that fails verification (bad signature, malformed, expired) is 403,
// and a verified identity absent from the store is 404.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Missing bearer token")
				return
			}

			identity, err := cfg.Tokens.Verify(token)
			if err != nil {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, http.StatusForbidden, "FORBIDDEN", "Invalid or expired token")
				return
			}

			// Check cache first
			if cfg.Cache != nil {
				if cached, _ := cfg.Cache.GetPrincipal(r.Context(), identity.UserID); cached != nil {
					recorder.IncAuthCacheHit()
					cfg.Logger.Info("authentication successful",
						slog.String("user_id", cached.UserID),
						slog.String("role", string(cached.Role)),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.Bool("cache_hit", true),
						slog.String("request_id", GetRequestID(r.Context())),
					)

					ctx := auth.ContextWithAuth(r.Context(), cached)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			// Cache miss - resolve against the credential store
			recorder.IncAuthCacheMiss()
			user, err := cfg.Users.GetUserByID(r.Context(), identity.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", "unknown_principal"),
						slog.String("user_id", identity.UserID),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
					return
				}

				cfg.Logger.Error("database error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
				return
			}

			// The store is the source of truth for the role; a stale role
			// claim in the token never outranks it.
			principal := &model.AuthContext{
				UserID: user.ID,
				Email:  user.Email,
				Role:   user.Role,
			}

			if cfg.Cache != nil {
				_ = cfg.Cache.SetPrincipal(r.Context(), principal)
			}

			cfg.Logger.Info("authentication successful",
				slog.String("user_id", principal.UserID),
				slog.String("role", string(principal.Role)),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Bool("cache_hit", false),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken extracts the bearer token from the Authorization header.
// Returns empty string if the header is absent or not a bearer credential.
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

// writeAuthError writes an auth failure response.
func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":{"code":"%s","message":"%s"}}`, code, message)
}
