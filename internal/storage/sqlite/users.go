package sqlite

import (
	"context"
	"fmt"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

func (db *DB) RoleOf(ctx context.Context, userID string) (domain.Role, error) {
	const op = "sqlite.User.RoleOf"

	var raw string
	if err := db.conn.QueryRowContext(ctx, `SELECT role FROM users WHERE id = ?`, userID).Scan(&raw); err != nil {
		return "", wrapError(ctx, op, err)
	}
	role, ok := domain.ParseRole(raw)
	if !ok {
		return "", fmt.Errorf("%s: role %q: %w", op, raw, e.ErrForbidden)
	}
	return role, nil
}

func (db *DB) NameOf(ctx context.Context, userID string) (string, error) {
	const op = "sqlite.User.NameOf"

	var name string
	if err := db.conn.QueryRowContext(ctx, `SELECT display_name FROM users WHERE id = ?`, userID).Scan(&name); err != nil {
		return "", wrapError(ctx, op, err)
	}
	return name, nil
}

// PutUser upserts a user row. The service never calls it; it seeds local setups and tests.
func (db *DB) PutUser(ctx context.Context, id, name string, role domain.Role) error {
	const op = "sqlite.User.Put"

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, display_name, role) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, role = excluded.role`,
		id, name, string(role),
	)
	if err != nil {
		return wrapError(ctx, op, err)
	}
	return nil
}
