package handlers

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memohai/promptdeck/internal/metrics"
)

// MetricsHandler exposes Prometheus metrics.
type MetricsHandler struct{}

func NewMetricsHandler() *MetricsHandler {
	metrics.Register()
	return &MetricsHandler{}
}

func (h *MetricsHandler) Register(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
