package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"reliefbridge/internal/api/handlers/http/admin"
	"reliefbridge/internal/api/handlers/http/requests"
	"reliefbridge/internal/api/handlers/http/system"
	"reliefbridge/internal/config"
	"reliefbridge/internal/domain"
	"reliefbridge/internal/middleware"
	"reliefbridge/internal/obs"
)

// Deps is everything the router mounts.
type Deps struct {
	Requests *requests.Handler
	Admin    *admin.Handler
	System   *system.Handler
	Tokens   middleware.TokenVerifier
	Identity middleware.RoleResolver
	// WS serves the websocket subscription; nil leaves /ws unmounted.
	WS http.HandlerFunc
}

type Server struct {
	logger *slog.Logger
	router *chi.Mux
	cfg    config.Config
}

func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, d Deps) *Server {
	return &Server{
		logger: logger,
		router: InitRouter(ctx, d, logger),
		cfg:    *cfg,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func InitRouter(ctx context.Context, d Deps, logger *slog.Logger) *chi.Mux {
	r := chi.NewMux()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(obs.Instrument)

	r.Get("/health", d.System.SystemHealth)
	r.Handle("/metrics", obs.Handler())
	if d.WS != nil {
		// the hub authenticates with the first frame, not a header
		r.Get("/ws", d.WS)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Limit(ctx, 10, 20, 5*time.Minute, logger))
		api.Use(middleware.Authenticate(d.Tokens, logger))

		api.Route("/requests", func(rr chi.Router) {
			rr.Post("/", d.Requests.CreateRequest)
			rr.Get("/", d.Requests.ListRequests)

			rr.Route("/{id}", func(ir chi.Router) {
				ir.Get("/", d.Requests.GetRequest)
				ir.Post("/claim", d.Requests.ClaimRequest)
				ir.Post("/complete", d.Requests.CompleteRequest)
				ir.Post("/cancel", d.Requests.CancelRequest)
				ir.Post("/unclaim", d.Requests.UnclaimRequest)
				ir.Get("/navigation", d.Requests.Navigation)
				ir.Get("/track", d.Requests.Track)
				ir.Get("/matches", d.Requests.Matches)
			})
		})

		api.Put("/volunteers/me/location", d.Requests.UpdateLocation)
		api.Get("/dashboard", d.Requests.Dashboard)

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.RequireRole(d.Identity, logger, domain.RoleCoordinator))
			ar.Use(middleware.Limit(ctx, 2, 5, 10*time.Minute, logger))

			ar.Post("/claims/expire", d.Admin.ExpireClaims)
			ar.Post("/tokens", d.Admin.IssueToken)
		})
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}
