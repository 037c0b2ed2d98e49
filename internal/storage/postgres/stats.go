package postgres

import (
	"context"
	"log/slog"

	"reliefbridge/internal/domain"
	"reliefbridge/pkg/e"
)

func (p *HelpRequests) CountByStatus(ctx context.Context) (map[domain.RequestStatus]int64, error) {
	const op = "postgres.HelpRequest.CountByStatus"

	const query = `SELECT status, COUNT(*) FROM help_requests GROUP BY status`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	counts := make(map[domain.RequestStatus]int64, 4)
	for rows.Next() {
		var (
			status domain.RequestStatus
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, e.WrapError(ctx, op, err)
	}
	return counts, nil
}
