package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/metrics"
)

// Backend is the part of the inference server the resolver needs.
type Backend interface {
	ListModels(ctx context.Context) ([]lmstudio.ModelInfo, error)
	LoadModel(ctx context.Context, id string) error
}

// Service resolves and lists models on the inference server.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// NewService creates a new models service
func NewService(log *slog.Logger, backend Backend) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		backend: backend,
		logger:  log.With(slog.String("service", "models")),
	}
}

// Resolve returns a handle for id, loading the model when it is not already
// resident. It never unloads anything and issues at most one load.
func (s *Service) Resolve(ctx context.Context, id string) (Handle, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Handle{}, fmt.Errorf("%w: model id is empty", ErrModelNotFound)
	}

	infos, err := s.backend.ListModels(ctx)
	switch {
	case err == nil:
		for _, info := range infos {
			if info.ID == id && info.Loaded() {
				metrics.ModelLoadsTotal.WithLabelValues(metrics.ResultResident).Inc()
				return Handle{ID: id, Resident: true}, nil
			}
		}
	case errors.Is(err, lmstudio.ErrUnreachable):
		return Handle{}, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	case ctx.Err() != nil:
		return Handle{}, ctx.Err()
	default:
		// Listing is an optimisation; a load request still decides.
		s.logger.Warn("list models failed, loading directly", slog.String("model", id), slog.Any("error", err))
	}

	s.logger.Info("loading model", slog.String("model", id))
	start := time.Now()
	if err := s.backend.LoadModel(ctx, id); err != nil {
		metrics.ModelLoadsTotal.WithLabelValues(metrics.ResultError).Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Handle{}, ctxErr
		}
		loadErr := classifyLoadError(id, err)
		s.logger.Error("model load failed", slog.String("model", id), slog.Any("error", loadErr))
		return Handle{}, loadErr
	}
	metrics.ModelLoadsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.ModelLoadDurationSeconds.Observe(metrics.Since(start))
	s.logger.Info("model loaded", slog.String("model", id), slog.Duration("took", time.Since(start)))
	return Handle{ID: id}, nil
}

// List returns every known model, loaded ones first, then by display name.
func (s *Service) List(ctx context.Context) ([]Model, error) {
	infos, err := s.backend.ListModels(ctx)
	if err != nil {
		if errors.Is(err, lmstudio.ErrUnreachable) {
			return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
		}
		return nil, fmt.Errorf("list models: %w", err)
	}
	out := make([]Model, 0, len(infos))
	for _, info := range infos {
		if strings.TrimSpace(info.ID) == "" {
			continue
		}
		out = append(out, fromInfo(info))
	}
	SortModels(out)
	return out, nil
}

// SortModels orders models loaded first, then alphabetically by name. Equal
// names are ordered by id so the result is deterministic.
func SortModels(items []Model) {
	slices.SortStableFunc(items, func(a, b Model) int {
		if a.Loaded != b.Loaded {
			if a.Loaded {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func classifyLoadError(id string, err error) error {
	if errors.Is(err, lmstudio.ErrUnreachable) {
		return &LoadError{ModelID: id, Reason: ErrServerUnreachable, Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient system resources"):
		return &LoadError{ModelID: id, Reason: ErrInsufficientResources, Err: err}
	case isNotFound(err, msg):
		return &LoadError{ModelID: id, Reason: ErrModelNotFound, Err: err}
	default:
		return &LoadError{ModelID: id, Reason: ErrLoadFailed, Err: err}
	}
}

func isNotFound(err error, msg string) bool {
	var apiErr *lmstudio.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return true
	}
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no model")
}
