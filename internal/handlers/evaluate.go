package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/evaluation"
	"github.com/memohai/promptdeck/internal/sse"
)

// Evaluator runs interview evaluations.
type Evaluator interface {
	MinTranscriptChars() int
	Stream(ctx context.Context, req evaluation.Request) (<-chan sse.Event, error)
	Evaluate(ctx context.Context, req evaluation.Request) (evaluation.Result, error)
}

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Transcript string `json:"transcript"`
	// Model overrides the configured evaluation model.
	Model string `json:"model,omitempty"`
}

type EvaluateHandler struct {
	service Evaluator
	logger  *slog.Logger
}

func NewEvaluateHandler(log *slog.Logger, service Evaluator) *EvaluateHandler {
	return &EvaluateHandler{
		service: service,
		logger:  log.With(slog.String("handler", "evaluate")),
	}
}

func (h *EvaluateHandler) Register(e *echo.Echo) {
	e.POST("/api/evaluate", h.Evaluate)
}

// Evaluate godoc
// @Summary Evaluate a casual interview transcript
// @Description Streams the model's evaluation as server-sent events. With stream=false the output is parsed and returned as an evaluation result.
// @Tags evaluate
// @Accept json
// @Produce text/event-stream
// @Param request body EvaluateRequest true "Transcript"
// @Param stream query bool false "Set to false for a parsed JSON result"
// @Success 200 {object} evaluation.Result
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /api/evaluate [post]
func (h *EvaluateHandler) Evaluate(c echo.Context) error {
	started := time.Now()
	var req EvaluateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody).SetInternal(err)
	}
	minChars := h.service.MinTranscriptChars()
	if err := validate.Var(req.Transcript, fmt.Sprintf("required,min=%d", minChars)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgTranscriptTooShort, minChars))
	}

	requestID := uuid.NewString()
	c.Response().Header().Set(headerRequestID, requestID)
	logger := h.logger.With(slog.String("request_id", requestID))
	ctx := c.Request().Context()
	evalReq := evaluation.Request{
		Transcript: req.Transcript,
		Model:      strings.TrimSpace(req.Model),
		RequestID:  requestID,
	}

	if !wantsStream(c) {
		result, err := h.service.Evaluate(ctx, evalReq)
		observeGeneration("evaluate", started, err)
		if err != nil {
			var parseErr *evaluation.ParseError
			if errors.As(err, &parseErr) {
				return &rawHTTPError{
					status: http.StatusBadGateway,
					body:   ErrorResponse{Error: msgEvaluationParse, Raw: parseErr.Raw},
				}
			}
			if errors.Is(err, evaluation.ErrTranscriptTooShort) {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgTranscriptTooShort, minChars))
			}
			return upstreamError(err, msgEvaluateFailed)
		}
		return c.JSON(http.StatusOK, result)
	}

	events, err := h.service.Stream(ctx, evalReq)
	if err != nil {
		observeGeneration("evaluate", started, err)
		if errors.Is(err, evaluation.ErrTranscriptTooShort) {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgTranscriptTooShort, minChars))
		}
		return upstreamError(err, msgEvaluateFailed)
	}
	logger.Info("evaluation start", slog.Int("transcript_chars", len([]rune(req.Transcript))))
	return streamEvents(c, logger, "evaluate", started, events)
}
