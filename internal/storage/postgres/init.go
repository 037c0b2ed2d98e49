package postgres

import (
	"context"
	_ "embed"
	"log/slog"

	"reliefbridge/internal/config"
	"reliefbridge/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

type Postgres struct {
	Pool     *pgxpool.Pool
	Requests *HelpRequests
	Users    *Users
}

func NewPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Postgres, error) {
	logger.Info("Connecting to Postgres",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.Database),
	)

	configNew, err := pgxpool.ParseConfig(cfg.Postgres.DSN())
	if err != nil {
		logger.Error("Failed to parse pgx config", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.ParseConfig", err)
	}
	if cfg.Postgres.MaxConns > 0 {
		configNew.MaxConns = cfg.Postgres.MaxConns
	}
	configNew.MinConns = cfg.Postgres.MinConns
	if cfg.Postgres.MaxConnLifetime > 0 {
		configNew.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, configNew)
	if err != nil {
		logger.Error("Failed to create pgx pool", slog.String("error", err.Error()))
		return nil, e.Wrap("storage.pg.NewPostgres.NewWithConfig", err)
	}

	logger.Info("Pinging Postgres database")
	if err := pool.Ping(ctx); err != nil {
		logger.Error("Failed to ping Postgres database", slog.String("error", err.Error()))
		pool.Close()
		return nil, e.Wrap("storage.pg.NewPostgres.Ping", err)
	}
	logger.Info("Connected to Postgres successfully")

	if cfg.Postgres.Migrate {
		if err := Migrate(ctx, pool); err != nil {
			logger.Error("Failed to apply schema", slog.String("error", err.Error()))
			pool.Close()
			return nil, err
		}
		logger.Info("Postgres schema applied")
	}

	return New(pool, logger), nil
}

// New wraps an existing pool. Used by tests that bring their own database.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{
		Pool:     pool,
		Requests: NewHelpRequests(pool, logger),
		Users:    NewUsers(pool, logger),
	}
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return e.Wrap("storage.pg.Migrate", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.Pool.Close()
}
