package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/healthcheck"
)

type PingHandler struct {
	checkers []healthcheck.Checker
	logger   *slog.Logger
}

// NewPingHandler creates the liveness handlers. Without checkers /health only
// reports that the process is up.
func NewPingHandler(log *slog.Logger, checkers ...healthcheck.Checker) *PingHandler {
	return &PingHandler{checkers: checkers, logger: log.With(slog.String("handler", "ping"))}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.PingHead)
	e.GET("/health", h.Health)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *PingHandler) PingHead(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// HealthResponse reports process liveness and the runtime checks.
type HealthResponse struct {
	Status string                    `json:"status"`
	Checks []healthcheck.CheckResult `json:"checks"`
}

// Health godoc
// @Summary Health check
// @Description Runs the runtime checks (LM Studio reachability, evaluation model). Always 200 while the process is up; status is the worst check status.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *PingHandler) Health(c echo.Context) error {
	checks := healthcheck.Run(c.Request().Context(), h.checkers...)
	status := healthcheck.Overall(checks)
	if status != healthcheck.StatusOK {
		h.logger.Debug("health degraded", slog.String("status", status))
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: status, Checks: checks})
}
