// Package health реализует проверку работоспособности сервиса.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/accelerator-platform/internal/http/response"
	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
)

// Check проверяет зависимость сервиса.
type Check func(ctx context.Context) error

// Status — состояние сервиса и его зависимостей.
type Status struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Handler отвечает на GET /health.
type Handler struct {
	log     *slog.Logger
	version string
	checks  map[string]Check
	timeout time.Duration
}

// New создает Handler. checks опрашиваются на каждый запрос.
func New(log *slog.Logger, version string, checks map[string]Check) *Handler {
	return &Handler{log: log, version: version, checks: checks, timeout: 2 * time.Second}
}

// ServeHTTP godoc
// @Summary Проверка работоспособности
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response{data=Status}
// @Failure 503 {object} response.Response{data=Status}
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := Status{Status: "ok", Version: h.version, Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Warn("health check failed", slog.String("op", op), slog.String("check", name), sl.Err(err))
			status.Checks[name] = "unavailable"
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status.Checks[name] = "ok"
	}

	render.Status(r, code)
	render.JSON(w, r, response.StatusOKWithData(status))
}
