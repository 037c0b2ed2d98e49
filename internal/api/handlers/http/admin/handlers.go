package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"reliefbridge/internal/api/handlers/http/respond"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/middleware"
	"reliefbridge/pkg/e"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type ClaimExpirer interface {
	ExpireClaims(ctx context.Context, cutoff time.Time) (int, error)
}

type TokenIssuer interface {
	GenerateToken(userID, role string) (string, error)
}

type RoleResolver interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}

type ExpireClaimsRequest struct {
	OlderThan string `json:"older_than" validate:"required"`
}

type IssueTokenRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// Handler serves coordinator-only operations; the router guards it with
// middleware.RequireRole.
type Handler struct {
	logger   *slog.Logger
	Claims   ClaimExpirer
	Tokens   TokenIssuer
	Identity RoleResolver
	now      func() time.Time
}

func NewHandler(logger *slog.Logger, claims ClaimExpirer, tokens TokenIssuer, identity RoleResolver) *Handler {
	return &Handler{
		logger:   logger,
		Claims:   claims,
		Tokens:   tokens,
		Identity: identity,
		now:      time.Now,
	}
}

// ExpireClaims releases every claim older than the given duration right away,
// without waiting for the reaper.
func (h *Handler) ExpireClaims(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	in, err := middleware.DecodeJSON[ExpireClaimsRequest](w, r, false)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	age, err := time.ParseDuration(in.OlderThan)
	if err != nil || age <= 0 {
		respond.Error(w, r, l, fmt.Errorf("older_than=%q: %w", in.OlderThan, e.ErrInvalidInput))
		return
	}

	cutoff := h.now().Add(-age)
	n, err := h.Claims.ExpireClaims(r.Context(), cutoff)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	l.Info("claims expired by coordinator",
		slog.String("actor_id", middleware.UserID(r.Context())),
		slog.Int("released", n),
		slog.Time("cutoff", cutoff),
	)
	respond.JSON(w, l, http.StatusOK, map[string]any{"released": n, "cutoff": cutoff.UTC()})
}

// IssueToken mints a bearer token for an existing user, for field ops without
// access to the authentication service.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	in, err := middleware.DecodeJSON[IssueTokenRequest](w, r, false)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}

	role, err := h.Identity.RoleOf(r.Context(), in.UserID)
	if err != nil {
		respond.Error(w, r, l, err)
		return
	}
	token, err := h.Tokens.GenerateToken(in.UserID, string(role))
	if err != nil {
		respond.Error(w, r, l, fmt.Errorf("sign token: %v: %w", err, e.ErrInternal))
		return
	}

	l.Info("token issued",
		slog.String("actor_id", middleware.UserID(r.Context())),
		slog.String("user_id", in.UserID),
		slog.String("role", string(role)),
	)
	respond.JSON(w, l, http.StatusCreated, map[string]string{"token": token, "user_id": in.UserID, "role": string(role)})
}
