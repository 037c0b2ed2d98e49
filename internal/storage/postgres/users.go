package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Users reads the externally managed users table. The service never writes it.
type Users struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewUsers(pool *pgxpool.Pool, logger *slog.Logger) *Users {
	return &Users{pool: pool, logger: logger}
}

func (u *Users) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	const op = "postgres.User.RoleOf"

	var raw string
	err := u.pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %s: %w", op, userID, e.ErrNotFound)
		}
		u.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err))
		return "", e.WrapError(ctx, op, err)
	}

	role, ok := domain.ParseRole(raw)
	if !ok {
		u.logger.Warn("user has unknown role", slog.String("user_id", userID), slog.String("role", raw))
		return "", fmt.Errorf("%s: role %q: %w", op, raw, e.ErrForbidden)
	}
	return role, nil
}

func (u *Users) NameOf(ctx context.Context, userID string) (string, error) {
	const op = "postgres.User.NameOf"

	var name string
	err := u.pool.QueryRow(ctx, `SELECT display_name FROM users WHERE id = $1`, userID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%s: %s: %w", op, userID, e.ErrNotFound)
		}
		return "", e.WrapError(ctx, op, err)
	}
	return name, nil
}
