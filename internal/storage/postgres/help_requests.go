package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, requester_id, requester_name, lat, lng, address, category, description,
	priority, contact, status, volunteer_id, volunteer_name,
	created_at, updated_at, claimed_at, completed_at, cancelled_at, version`

type HelpRequests struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewHelpRequests(pool *pgxpool.Pool, logger *slog.Logger) *HelpRequests {
	return &HelpRequests{pool: pool, logger: logger}
}

func (p *HelpRequests) Insert(ctx context.Context, r *domain.HelpRequest) error {
	const op = "postgres.HelpRequest.Insert"

	const query = `
		INSERT INTO help_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := p.pool.Exec(ctx, query,
		r.ID, r.RequesterID, r.RequesterName, r.Location.Lat, r.Location.Lng, r.Address,
		r.Category, r.Description, r.Priority, r.Contact, r.Status, r.VolunteerID, r.VolunteerName,
		r.CreatedAt, r.UpdatedAt, r.ClaimedAt, r.CompletedAt, r.CancelledAt, r.Version,
	)
	if err != nil {
		p.logger.Error("db exec failed", slog.String("op", op), slog.Any("error", err), slog.String("id", r.ID))
		return e.WrapError(ctx, op, err)
	}
	return nil
}

func (p *HelpRequests) Get(ctx context.Context, id string) (*domain.HelpRequest, error) {
	const op = "postgres.HelpRequest.Get"

	const query = `SELECT ` + requestColumns + ` FROM help_requests WHERE id = $1`

	r, err := scanRequest(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %s: %w", op, id, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id))
		return nil, e.WrapError(ctx, op, err)
	}
	return r, nil
}

// ConditionalUpdate is a single UPDATE guarded by status and version, so two
// writers racing on the same snapshot can never both succeed.
func (p *HelpRequests) ConditionalUpdate(ctx context.Context, id string, expected domain.RequestStatus, expectedVersion int64, next *domain.HelpRequest) (*domain.HelpRequest, error) {
	const op = "postgres.HelpRequest.ConditionalUpdate"

	const query = `
		UPDATE help_requests
		SET status         = $4,
			volunteer_id   = $5,
			volunteer_name = $6,
			updated_at     = $7,
			claimed_at     = $8,
			completed_at   = $9,
			cancelled_at   = $10,
			version        = $11
		WHERE id = $1 AND status = $2 AND version = $3
		RETURNING ` + requestColumns

	r, err := scanRequest(p.pool.QueryRow(ctx, query,
		id, expected, expectedVersion,
		next.Status, next.VolunteerID, next.VolunteerName, next.UpdatedAt,
		next.ClaimedAt, next.CompletedAt, next.CancelledAt, next.Version,
	))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		p.logger.Error("db update failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id))
		return nil, e.WrapError(ctx, op, err)
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM help_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %s: %w", op, id, e.ErrNotFound)
	}
	return nil, fmt.Errorf("%s: %s no longer %s v%d: %w", op, id, expected, expectedVersion, e.ErrConflict)
}

func (p *HelpRequests) Query(ctx context.Context, f domain.ListFilter) ([]*domain.HelpRequest, error) {
	const op = "postgres.HelpRequest.Query"

	where, args := buildFilter(f)
	query := `SELECT ` + requestColumns + ` FROM help_requests` + where + ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	out := make([]*domain.HelpRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.HelpRequest, error) {
	var r domain.HelpRequest
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.RequesterName, &r.Location.Lat, &r.Location.Lng, &r.Address,
		&r.Category, &r.Description, &r.Priority, &r.Contact, &r.Status, &r.VolunteerID, &r.VolunteerName,
		&r.CreatedAt, &r.UpdatedAt, &r.ClaimedAt, &r.CompletedAt, &r.CancelledAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return &r, nil
}

// buildFilter renders the WHERE clause for f with positional parameters.
func buildFilter(f domain.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.RequesterID != "" {
		add("requester_id = $%d", f.RequesterID)
	}
	if f.VolunteerID != "" {
		add("volunteer_id = $%d", f.VolunteerID)
	}
	if !f.ClaimedBefore.IsZero() {
		add("claimed_at < $%d", f.ClaimedBefore)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
