package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/models"
)

// ModelLister lists models known to the inference server.
type ModelLister interface {
	List(ctx context.Context) ([]models.Model, error)
}

type ModelsHandler struct {
	service ModelLister
	logger  *slog.Logger
}

func NewModelsHandler(log *slog.Logger, service ModelLister) *ModelsHandler {
	return &ModelsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "models")),
	}
}

func (h *ModelsHandler) Register(e *echo.Echo) {
	e.GET("/api/models", h.List)
}

// List godoc
// @Summary List models
// @Description List models known to LM Studio, loaded models first, then by name
// @Tags models
// @Produce json
// @Success 200 {object} models.ListResponse
// @Failure 503 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/models [get]
func (h *ModelsHandler) List(c echo.Context) error {
	items, err := h.service.List(c.Request().Context())
	if err != nil {
		h.logger.Warn("list models failed", slog.Any("error", err))
		return upstreamError(err, "モデル一覧の取得に失敗しました")
	}
	return c.JSON(http.StatusOK, models.ListResponse{Data: items})
}
