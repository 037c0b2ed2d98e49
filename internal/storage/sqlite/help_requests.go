package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

const requestColumns = `id, requester_id, requester_name, lat, lng, address, category, description,
	priority, contact, status, volunteer_id, volunteer_name,
	created_at, updated_at, claimed_at, completed_at, cancelled_at, version`

func (db *DB) Insert(ctx context.Context, r *domain.HelpRequest) error {
	const op = "sqlite.HelpRequest.Insert"

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO help_requests (`+requestColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.RequesterID, r.RequesterName, r.Location.Lat, r.Location.Lng, r.Address,
		r.Category, r.Description, string(r.Priority), r.Contact, string(r.Status), r.VolunteerID, r.VolunteerName,
		r.CreatedAt.UTC(), r.UpdatedAt.UTC(), utcPtr(r.ClaimedAt), utcPtr(r.CompletedAt), utcPtr(r.CancelledAt), r.Version,
	)
	if err != nil {
		db.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", r.ID))
		return wrapError(ctx, op, err)
	}
	return nil
}

func (db *DB) Get(ctx context.Context, id string) (*domain.HelpRequest, error) {
	const op = "sqlite.HelpRequest.Get"

	row := db.conn.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM help_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if err != nil {
		return nil, wrapError(ctx, op, err)
	}
	return r, nil
}

// ConditionalUpdate applies next only while the row still has the expected status
// and version. Zero affected rows means somebody else got there first (or the row
// is gone).
func (db *DB) ConditionalUpdate(ctx context.Context, id string, expected domain.RequestStatus, expectedVersion int64, next *domain.HelpRequest) (*domain.HelpRequest, error) {
	const op = "sqlite.HelpRequest.ConditionalUpdate"

	res, err := db.conn.ExecContext(ctx,
		`UPDATE help_requests
		 SET status = ?, volunteer_id = ?, volunteer_name = ?, updated_at = ?,
		     claimed_at = ?, completed_at = ?, cancelled_at = ?, version = ?
		 WHERE id = ? AND status = ? AND version = ?`,
		string(next.Status), next.VolunteerID, next.VolunteerName, next.UpdatedAt.UTC(),
		utcPtr(next.ClaimedAt), utcPtr(next.CompletedAt), utcPtr(next.CancelledAt), next.Version,
		id, string(expected), expectedVersion,
	)
	if err != nil {
		db.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id))
		return nil, wrapError(ctx, op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, wrapError(ctx, op, err)
	}
	if n == 0 {
		var exists int
		if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM help_requests WHERE id = ?`, id).Scan(&exists); err != nil {
			return nil, wrapError(ctx, op, err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("%s: %s: %w", op, id, e.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %s no longer %s v%d: %w", op, id, expected, expectedVersion, e.ErrConflict)
	}

	out := next.Clone()
	out.ID = id
	return out, nil
}

func (db *DB) Query(ctx context.Context, f domain.ListFilter) ([]*domain.HelpRequest, error) {
	const op = "sqlite.HelpRequest.Query"

	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		conds, args = append(conds, "status = ?"), append(args, string(f.Status))
	}
	if f.RequesterID != "" {
		conds, args = append(conds, "requester_id = ?"), append(args, f.RequesterID)
	}
	if f.VolunteerID != "" {
		conds, args = append(conds, "volunteer_id = ?"), append(args, f.VolunteerID)
	}
	if !f.ClaimedBefore.IsZero() {
		conds, args = append(conds, "claimed_at < ?"), append(args, f.ClaimedBefore.UTC())
	}

	query := `SELECT ` + requestColumns + ` FROM help_requests`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		db.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, wrapError(ctx, op, err)
	}
	defer rows.Close()

	out := make([]*domain.HelpRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, wrapError(ctx, op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(ctx, op, err)
	}
	return out, nil
}

func (db *DB) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	const op = "sqlite.HelpRequest.CountByStatus"

	rows, err := db.conn.QueryContext(ctx, `SELECT status, COUNT(*) FROM help_requests GROUP BY status`)
	if err != nil {
		return nil, wrapError(ctx, op, err)
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int64, 4)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, wrapError(ctx, op, err)
		}
		counts[domain.RequestStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(ctx, op, err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.HelpRequest, error) {
	var (
		r                domain.HelpRequest
		priority, status string
	)
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.RequesterName, &r.Location.Lat, &r.Location.Lng, &r.Address,
		&r.Category, &r.Description, &priority, &r.Contact, &status, &r.VolunteerID, &r.VolunteerName,
		&r.CreatedAt, &r.UpdatedAt, &r.ClaimedAt, &r.CompletedAt, &r.CancelledAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.Priority = domain.Priority(priority)
	r.Status = domain.RequestStatus(status)
	return &r, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
