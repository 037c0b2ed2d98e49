package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"reliefbridge/internal/api"
	"reliefbridge/internal/api/handlers/http/admin"
	"reliefbridge/internal/api/handlers/http/requests"
	"reliefbridge/internal/api/handlers/http/system"
	"reliefbridge/internal/auth"
	"reliefbridge/internal/broadcast"
	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/obs"
	"reliefbridge/internal/redis"
	"reliefbridge/internal/service"
	"reliefbridge/internal/storage/memory"
	"reliefbridge/internal/storage/postgres"
	"reliefbridge/internal/storage/sqlite"
	"reliefbridge/internal/workers"
	"reliefbridge/pkg/logger"
)

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Service    *service.CoordinationService

	Postgres *postgres.Postgres
	SQLite   *sqlite.DB
	Redis    *redis.Redis
	AMQP     *broadcast.AMQPPublisher

	Hub           *broadcast.Hub
	WebhookSender *service.WebhookSender
	Reaper        *workers.ClaimReaper
}

// backend is what a storage driver contributes.
type backend struct {
	persistence service.Persistence
	identity    service.IdentityProvider
	ping        system.Check
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	obs.Init()
	c := &Components{logger: logger}

	be, err := c.initStorage(ctx, cfg)
	if err != nil {
		c.ShutdownAll()
		return nil, err
	}
	health := system.NewHandler(logger).Register("storage", be.ping)

	var (
		locations service.LocationTracker = memory.NewLocations(cfg.Coordination.LocationTTL)
		queue     *redis.WebhookQueue
	)
	if !cfg.Redis.Disabled {
		logger.Info("Initializing Redis")
		c.Redis, err = redis.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			c.ShutdownAll()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		locations = redis.NewLocationCache(c.Redis, cfg.Coordination.LocationTTL)
		queue = redis.NewWebhookQueue(c.Redis.Client, cfg.Webhook.QueueKey)
		health.Register("redis", c.Redis.Ping)
	} else {
		logger.Warn("Redis disabled, volunteer locations kept in process memory")
	}

	jwtSvc := auth.NewJWTService(cfg.JWT)

	sinks := broadcast.NewFanout(logger)
	for _, name := range cfg.Broadcast.Sinks {
		switch name {
		case config.SinkWS:
			c.Hub = broadcast.NewHub(hubAuth(jwtSvc, be.identity), logger)
			sinks.Add(name, c.Hub)
		case config.SinkAMQP:
			logger.Info("Initializing RabbitMQ")
			c.AMQP, err = broadcast.NewAMQPPublisher(ctx, cfg.AMQP, logger)
			if err != nil {
				c.ShutdownAll()
				return nil, fmt.Errorf("failed to init amqp: %w", err)
			}
			sinks.Add(name, c.AMQP)
		case config.SinkWebhook:
			if queue == nil {
				logger.Warn("webhook sink needs redis, skipping")
				continue
			}
			sinks.Add(name, broadcast.NewWebhookSink(queue))
		}
	}
	var events service.EventBroadcaster = broadcast.Nop{}
	if sinks.Len() > 0 {
		events = sinks
	}

	c.Service = service.NewCoordinationService(service.Deps{
		Persistence: be.persistence,
		Identity:    be.identity,
		Events:      events,
		Locations:   locations,
		Logger:      logger,
		Config:      cfg.Coordination,
	})

	if queue != nil && !cfg.Webhook.Disabled && cfg.Webhook.URL != "" {
		c.WebhookSender = service.NewWebhookSender(logger, cfg.Webhook, queue)
	}
	c.Reaper = workers.NewClaimReaper(c.Service, cfg.Coordination.ClaimTimeout, cfg.Coordination.ReapInterval, logger)

	deps := api.Deps{
		Requests: requests.NewHandler(logger, c.Service),
		Admin:    admin.NewHandler(logger, c.Service, jwtSvc, be.identity),
		System:   health,
		Tokens:   jwtSvc,
		Identity: be.identity,
	}
	if c.Hub != nil {
		deps.WS = c.Hub.ServeWS
	}
	c.HttpServer = api.NewServer(ctx, cfg, logger, deps)
	logger.Info("Initialized server",
		slog.String("storage", cfg.Storage.Driver),
		slog.Any("sinks", cfg.Broadcast.Sinks),
	)

	return c, nil
}

func (c *Components) initStorage(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		c.logger.Info("Initializing Postgres")
		pg, err := postgres.NewPostgres(ctx, cfg, c.logger)
		if err != nil {
			c.logger.Error("Failed to init postgres", slog.Any("error", err))
			return backend{}, fmt.Errorf("failed to init postgres: %w", err)
		}
		c.Postgres = pg
		if len(cfg.Storage.SeedUsers) > 0 {
			c.logger.Warn("SEED_USERS ignored for postgres; users table is owned externally")
		}
		return backend{persistence: pg.Persistence(), identity: pg.Identity(), ping: pg.Pool.Ping}, nil

	case config.DriverSQLite:
		c.logger.Info("Initializing SQLite", slog.String("path", cfg.SQLite.Path))
		db, err := sqlite.Open(ctx, cfg.SQLite.Path, c.logger)
		if err != nil {
			return backend{}, fmt.Errorf("failed to init sqlite: %w", err)
		}
		c.SQLite = db
		for _, u := range parseSeedUsers(cfg.Storage.SeedUsers, c.logger) {
			if err := db.PutUser(ctx, u.ID, u.Name, u.Role); err != nil {
				return backend{}, fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}
		return backend{persistence: db, identity: db, ping: db.Ping}, nil

	default:
		c.logger.Warn("Using in-memory storage; data is lost on restart")
		dir := memory.NewDirectory(parseSeedUsers(cfg.Storage.SeedUsers, c.logger)...)
		return backend{
			persistence: memory.NewStore(),
			identity:    dir,
			ping:        func(context.Context) error { return nil },
		}, nil
	}
}

// hubAuth verifies the websocket token and then asks the directory for the
// role, like every other entry point.
func hubAuth(tokens *auth.JWTService, identity service.IdentityProvider) broadcast.AuthFunc {
	return func(ctx context.Context, token string) (string, domain.Role, error) {
		userID, _, err := tokens.ExtractUserID(token)
		if err != nil {
			return "", "", err
		}
		role, err := identity.RoleOf(ctx, userID)
		if err != nil {
			return "", "", err
		}
		return userID, role, nil
	}
}

func parseSeedUsers(entries []string, logger *slog.Logger) []memory.User {
	users := make([]memory.User, 0, len(entries))
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 {
			logger.Warn("malformed SEED_USERS entry", slog.String("entry", entry))
			continue
		}
		role, ok := domain.ParseRole(parts[1])
		if !ok {
			logger.Warn("unknown role in SEED_USERS", slog.String("entry", entry))
			continue
		}
		u := memory.User{ID: parts[0], Role: role}
		if len(parts) == 3 {
			u.Name = parts[2]
		}
		users = append(users, u)
	}
	return users
}

// StartWorkers launches the background loops; they stop with ctx.
func (c *Components) StartWorkers(ctx context.Context, wg *sync.WaitGroup) {
	run := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			c.logger.Info("worker stopped", slog.String("worker", name))
		}()
	}

	if c.Hub != nil {
		run("ws_hub", c.Hub.Run)
	}
	if c.WebhookSender != nil {
		run("webhook_sender", c.WebhookSender.Run)
	}
	run("claim_reaper", c.Reaper.Run)
}

func SetupLogger(env string) *slog.Logger {
	switch env {
	case "local":
		return logger.SetupPrettySlog()
	case "dev":
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	if c.AMQP != nil {
		c.AMQP.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.Any("error", err))
		}
	}
	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.logger.Error("SQLite close failed", slog.Any("error", err))
		}
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}

	c.logger.Info("All components stopped", slog.Duration("latency", time.Since(start)))
}
