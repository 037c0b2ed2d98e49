package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

type ctxKey int

const userIDKey ctxKey = iota

// TokenVerifier turns a bearer token into the subject it was issued for.
type TokenVerifier interface {
	ExtractUserID(token string) (userID, role string, err error)
}

// RoleResolver is the identity lookup; token role claims are never trusted.
type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}

// Authenticate requires "Authorization: Bearer <jwt>" and stores the subject in
// the request context.
func Authenticate(tokens TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, e.KindUnauthenticated, "missing bearer token")
				return
			}

			userID, _, err := tokens.ExtractUserID(strings.TrimSpace(raw))
			if err != nil {
				logger.Info("token rejected", slog.String("path", r.URL.Path), slog.Any("error", err))
				writeError(w, http.StatusUnauthorized, e.KindUnauthenticated, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// RequireRole admits only callers whose current role is one of roles.
func RequireRole(identity RoleResolver, logger *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			role, err := identity.RoleOf(r.Context(), userID)
			if err != nil || !slices.Contains(roles, role) {
				logger.Warn("role check failed",
					slog.String("user_id", userID),
					slog.String("role", string(role)),
					slog.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, e.KindForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated subject, or "" outside Authenticate.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func writeError(w http.ResponseWriter, status int, kind e.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"kind": string(kind), "message": msg},
	})
}
