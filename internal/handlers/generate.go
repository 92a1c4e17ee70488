package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/chat"
	"github.com/memohai/promptdeck/internal/config"
	"github.com/memohai/promptdeck/internal/media"
	"github.com/memohai/promptdeck/internal/metrics"
	"github.com/memohai/promptdeck/internal/models"
	"github.com/memohai/promptdeck/internal/sse"
)

// ModelResolver makes a model resident on the inference server.
type ModelResolver interface {
	Resolve(ctx context.Context, id string) (models.Handle, error)
}

// Generator assembles content blocks and runs generations.
type Generator interface {
	Assemble(ctx context.Context, req chat.Request) ([]chat.ContentBlock, error)
	Stream(ctx context.Context, handle models.Handle, blocks []chat.ContentBlock, opts chat.Options) <-chan sse.Event
	Generate(ctx context.Context, handle models.Handle, blocks []chat.ContentBlock, opts chat.Options) (string, error)
}

// GenerateRequest is the body of POST /api/generate. Model may also be sent
// as modelId. Images and Files are the older shape of Attachments: bare data
// URIs, appended after Attachments with images first.
type GenerateRequest struct {
	Model        string        `json:"model,omitempty"`
	ModelID      string        `json:"modelId,omitempty"`
	SystemPrompt string        `json:"systemPrompt,omitempty"`
	UserPrompt   string        `json:"userPrompt"`
	Attachments  []media.Input `json:"attachments,omitempty"`
	Images       []string      `json:"images,omitempty"`
	Files        []string      `json:"files,omitempty"`
}

// GenerateResponse is the non-streaming response.
type GenerateResponse struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	RequestID string `json:"requestId"`
}

type generateInput struct {
	Model      string `validate:"required"`
	UserPrompt string `validate:"required"`
}

func (r GenerateRequest) modelID() string {
	if m := strings.TrimSpace(r.Model); m != "" {
		return m
	}
	return strings.TrimSpace(r.ModelID)
}

func (r GenerateRequest) inputs() []media.Input {
	out := make([]media.Input, 0, len(r.Attachments)+len(r.Images)+len(r.Files))
	out = append(out, r.Attachments...)
	for _, uri := range r.Images {
		out = append(out, media.Input{Data: uri})
	}
	for _, uri := range r.Files {
		out = append(out, media.Input{Data: uri})
	}
	return out
}

type GenerateHandler struct {
	media     *media.Service
	models    ModelResolver
	generator Generator
	limits    config.LimitsConfig
	logger    *slog.Logger
}

func NewGenerateHandler(log *slog.Logger, mediaService *media.Service, resolver ModelResolver, generator Generator, cfg config.Config) *GenerateHandler {
	return &GenerateHandler{
		media:     mediaService,
		models:    resolver,
		generator: generator,
		limits:    cfg.Limits,
		logger:    log.With(slog.String("handler", "generate")),
	}
}

func (h *GenerateHandler) Register(e *echo.Echo) {
	e.POST("/api/generate", h.Generate)
}

// Generate godoc
// @Summary Generate a response from a local model
// @Description Streams generated text as server-sent events: data: {"chunk": text} frames followed by data: [DONE] or data: {"error": message}. With stream=false a single JSON body is returned.
// @Tags generate
// @Accept json
// @Produce text/event-stream
// @Param request body GenerateRequest true "Generation request"
// @Param stream query bool false "Set to false for a single JSON response"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Failure 507 {object} ErrorResponse
// @Router /api/generate [post]
func (h *GenerateHandler) Generate(c echo.Context) error {
	started := time.Now()
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, msgInvalidBody).SetInternal(err)
	}
	modelID := req.modelID()
	if err := validate.Struct(generateInput{Model: modelID, UserPrompt: req.UserPrompt}); err != nil {
		return validationError(err, map[string]string{
			"Model":      msgModelRequired,
			"UserPrompt": msgUserPromptRequired,
		})
	}

	inputs := req.inputs()
	if h.limits.MaxAttachments > 0 && len(inputs) > h.limits.MaxAttachments {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(msgTooManyAttachments, h.limits.MaxAttachments))
	}
	for i, in := range inputs {
		if _, err := h.media.Validate(in); err != nil {
			return attachmentError(in, i, h.media.MaxBytes(), err)
		}
	}

	requestID := uuid.NewString()
	c.Response().Header().Set(headerRequestID, requestID)
	logger := h.logger.With(slog.String("request_id", requestID), slog.String("model", modelID))

	ctx := c.Request().Context()
	decoded := chat.DecodeAll(h.media, inputs)
	for _, d := range decoded {
		if d.Err != nil {
			metrics.AttachmentDecodeErrorsTotal.WithLabelValues(string(d.Attachment.Kind)).Inc()
		}
	}

	handle, err := h.models.Resolve(ctx, modelID)
	if err != nil {
		observeGeneration("generate", started, err)
		return upstreamError(err, msgGenerateFailed)
	}
	blocks, err := h.generator.Assemble(ctx, chat.Request{
		ModelID:      modelID,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Attachments:  decoded,
	})
	if err != nil {
		observeGeneration("generate", started, err)
		return upstreamError(err, msgGenerateFailed)
	}
	logger.Info("generation start",
		slog.Int("attachments", len(inputs)),
		slog.Bool("resident", handle.Resident),
	)

	opts := chat.Options{Endpoint: "generate", RequestID: requestID}
	if !wantsStream(c) {
		text, err := h.generator.Generate(ctx, handle, blocks, opts)
		observeGeneration("generate", started, err)
		if err != nil {
			return upstreamError(err, msgGenerateFailed)
		}
		return c.JSON(http.StatusOK, GenerateResponse{Text: text, Model: modelID, RequestID: requestID})
	}
	return streamEvents(c, logger, "generate", started, h.generator.Stream(ctx, handle, blocks, opts))
}
