package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/metrics"
	"github.com/memohai/promptdeck/internal/models"
	"github.com/memohai/promptdeck/internal/sse"
)

// Generator is the streaming side of the inference server.
type Generator interface {
	StreamChat(ctx context.Context, req lmstudio.ChatRequest) (lmstudio.Stream, error)
}

// Resolver drives generations against the inference server.
type Resolver struct {
	generator Generator
	registrar ImageRegistrar
	logger    *slog.Logger
}

// NewResolver creates a Resolver. registrar may be nil when no request
// carries images.
func NewResolver(log *slog.Logger, generator Generator, registrar ImageRegistrar) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		generator: generator,
		registrar: registrar,
		logger:    log.With(slog.String("service", "chat_resolver")),
	}
}

// Assemble builds content blocks using the resolver's image registrar.
func (r *Resolver) Assemble(ctx context.Context, req Request) ([]ContentBlock, error) {
	return assemble(ctx, req, r.registrar, r.logger)
}

// Drive runs one generation and forwards every non-empty fragment to
// onFragment in arrival order, unmodified. A non-nil error from onFragment
// stops the generation and is returned as is; server failures are returned
// classified (see ClassifyError).
func (r *Resolver) Drive(ctx context.Context, handle models.Handle, blocks []ContentBlock, opts Options, onFragment func(string) error) error {
	start := time.Now()
	logger := r.logger.With(
		slog.String("model", handle.ID),
		slog.String("endpoint", opts.endpoint()),
	)
	if opts.RequestID != "" {
		logger = logger.With(slog.String("request_id", opts.RequestID))
	}

	stream, err := r.generator.StreamChat(ctx, lmstudio.ChatRequest{
		Model:          handle.ID,
		Messages:       toOpenAIMessages(blocks),
		ResponseFormat: opts.ResponseFormat,
	})
	if err != nil {
		classified := ClassifyError(err)
		logger.Error("generation start failed", slog.Any("error", classified))
		return classified
	}
	defer stream.Close()

	first := true
	fragments := 0
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			logger.Info("generation finished",
				slog.Int("fragments", fragments),
				slog.Duration("took", time.Since(start)),
			)
			return nil
		}
		if err != nil {
			classified := ClassifyError(err)
			logger.Error("generation failed", slog.Int("fragments", fragments), slog.Any("error", classified))
			return classified
		}
		if fragment == "" {
			continue
		}
		if first {
			first = false
			latency := time.Since(start)
			metrics.FirstFragmentSeconds.WithLabelValues(opts.endpoint()).Observe(latency.Seconds())
			logger.Info("first fragment", slog.Duration("latency", latency))
		}
		fragments++
		if err := onFragment(fragment); err != nil {
			return err
		}
	}
}

// Stream runs Drive in a goroutine and returns its events: zero or more
// chunks followed by exactly one done or error event, after which the
// channel is closed. Callers must drain the channel.
func (r *Resolver) Stream(ctx context.Context, handle models.Handle, blocks []ContentBlock, opts Options) <-chan sse.Event {
	out := make(chan sse.Event)
	go func() {
		defer close(out)
		err := r.Drive(ctx, handle, blocks, opts, func(fragment string) error {
			select {
			case out <- sse.Chunk(fragment):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			out <- sse.Error(DescribeError(err))
			return
		}
		out <- sse.Done()
	}()
	return out
}

// Generate runs one generation and returns the concatenated output.
func (r *Resolver) Generate(ctx context.Context, handle models.Handle, blocks []ContentBlock, opts Options) (string, error) {
	var b strings.Builder
	err := r.Drive(ctx, handle, blocks, opts, func(fragment string) error {
		b.WriteString(fragment)
		return nil
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func toOpenAIMessages(blocks []ContentBlock) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(blocks))
	for _, block := range blocks {
		role := openai.ChatMessageRoleUser
		if block.Role == RoleSystem {
			role = openai.ChatMessageRoleSystem
		}
		if len(block.Images) == 0 {
			messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: block.Text})
			continue
		}
		parts := make([]openai.ChatMessagePart, 0, len(block.Images)+1)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: block.Text,
		})
		for _, img := range block.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    img.URL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
	}
	return messages
}
