package system

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"reliefbridge/internal/api/handlers/http/respond"
)

// Check pings one dependency.
type Check func(ctx context.Context) error

type Handler struct {
	logger *slog.Logger
	checks map[string]Check
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger, checks: make(map[string]Check)}
}

// Register adds a dependency check reported by SystemHealth.
func (h *Handler) Register(name string, check Check) *Handler {
	h.checks[name] = check
	return h
}

// SystemHealth is 200 when every check passes and 503 otherwise.
func (h *Handler) SystemHealth(w http.ResponseWriter, r *http.Request) {
	l := respond.Logger(h.logger, r)

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			l.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
			results[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	respond.JSON(w, l, code, map[string]any{"status": status, "checks": results})
}
