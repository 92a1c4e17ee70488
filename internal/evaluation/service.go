package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/memohai/promptdeck/internal/chat"
	"github.com/memohai/promptdeck/internal/config"
	"github.com/memohai/promptdeck/internal/models"
	"github.com/memohai/promptdeck/internal/sse"
)

// ModelResolver makes a model resident.
type ModelResolver interface {
	Resolve(ctx context.Context, id string) (models.Handle, error)
}

// Driver runs generations.
type Driver interface {
	Stream(ctx context.Context, handle models.Handle, blocks []chat.ContentBlock, opts chat.Options) <-chan sse.Event
	Generate(ctx context.Context, handle models.Handle, blocks []chat.ContentBlock, opts chat.Options) (string, error)
}

// Service evaluates interview transcripts.
type Service struct {
	models ModelResolver
	driver Driver
	cfg    config.EvaluationConfig
	logger *slog.Logger
}

func NewService(log *slog.Logger, resolver ModelResolver, driver Driver, cfg config.EvaluationConfig) *Service {
	if log == nil {
		log = slog.Default()
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = config.DefaultEvaluationModel
	}
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = config.DefaultMinTranscriptChars
	}
	return &Service{
		models: resolver,
		driver: driver,
		cfg:    cfg,
		logger: log.With(slog.String("service", "evaluation")),
	}
}

// MinTranscriptChars is the shortest accepted transcript, in characters.
func (s *Service) MinTranscriptChars() int {
	return s.cfg.MinTranscriptChars
}

// CheckTranscript rejects transcripts shorter than the configured minimum.
func (s *Service) CheckTranscript(transcript string) error {
	if n := utf8.RuneCountInString(transcript); n < s.cfg.MinTranscriptChars {
		return fmt.Errorf("%w: %d < %d characters", ErrTranscriptTooShort, n, s.cfg.MinTranscriptChars)
	}
	return nil
}

// Request is one evaluation. Model overrides the configured model when set.
type Request struct {
	Transcript string
	Model      string
	RequestID  string
}

// Stream resolves the model and starts generating. Resolution errors are
// returned before any event is produced.
func (s *Service) Stream(ctx context.Context, req Request) (<-chan sse.Event, error) {
	handle, blocks, opts, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.driver.Stream(ctx, handle, blocks, opts), nil
}

// Evaluate generates an evaluation and parses it. A *ParseError carries the
// raw output when the model did not answer with valid JSON.
func (s *Service) Evaluate(ctx context.Context, req Request) (Result, error) {
	handle, blocks, opts, err := s.prepare(ctx, req)
	if err != nil {
		return Result{}, err
	}
	text, err := s.driver.Generate(ctx, handle, blocks, opts)
	if err != nil {
		return Result{}, err
	}
	result, err := Parse(text)
	if err != nil {
		s.logger.Warn("evaluation output is not valid json",
			slog.String("request_id", req.RequestID),
			slog.Int("length", len(text)),
			slog.Any("error", err),
		)
		return Result{}, err
	}
	return result, nil
}

func (s *Service) prepare(ctx context.Context, req Request) (models.Handle, []chat.ContentBlock, chat.Options, error) {
	if err := s.CheckTranscript(req.Transcript); err != nil {
		return models.Handle{}, nil, chat.Options{}, err
	}
	modelID := strings.TrimSpace(req.Model)
	if modelID == "" {
		modelID = s.cfg.Model
	}
	handle, err := s.models.Resolve(ctx, modelID)
	if err != nil {
		return models.Handle{}, nil, chat.Options{}, err
	}
	blocks, err := chat.Assemble(ctx, chat.Request{
		ModelID:      modelID,
		SystemPrompt: SystemPrompt,
		UserPrompt:   UserPrompt(req.Transcript),
	}, nil)
	if err != nil {
		return models.Handle{}, nil, chat.Options{}, err
	}
	opts := chat.Options{Endpoint: "evaluate", RequestID: req.RequestID}
	if s.cfg.StructuredOutput {
		opts.ResponseFormat = ResponseFormat()
	}
	return handle, blocks, opts, nil
}
