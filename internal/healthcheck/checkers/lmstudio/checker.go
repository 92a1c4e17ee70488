package lmstudiochecker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memohai/promptdeck/internal/healthcheck"
	"github.com/memohai/promptdeck/internal/models"
)

const (
	checkTypeServer          = "lmstudio.server"
	checkTypeEvaluationModel = "lmstudio.evaluation_model"
	defaultCheckTimeout      = 3 * time.Second
)

// ModelLister lists models known to LM Studio.
type ModelLister interface {
	List(ctx context.Context) ([]models.Model, error)
}

// Checker reports LM Studio reachability and whether the evaluation model
// is available.
type Checker struct {
	logger          *slog.Logger
	models          ModelLister
	evaluationModel string
	timeout         time.Duration
}

// NewChecker creates an LM Studio health checker. evaluationModel may be
// empty, in which case only reachability is checked.
func NewChecker(log *slog.Logger, lister ModelLister, evaluationModel string) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger:          log.With(slog.String("checker", "healthcheck_lmstudio")),
		models:          lister,
		evaluationModel: strings.TrimSpace(evaluationModel),
		timeout:         defaultCheckTimeout,
	}
}

// ListChecks probes the model listing once and derives every check from it.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if c.models == nil {
		return []healthcheck.CheckResult{{
			ID:      checkTypeServer,
			Type:    checkTypeServer,
			Status:  healthcheck.StatusUnknown,
			Summary: "LM Studio checker is not configured.",
		}}
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	items, err := c.models.List(probeCtx)
	if err != nil {
		c.logger.Debug("lm studio probe failed", slog.Any("error", err))
		summary := "Failed to list LM Studio models."
		if errors.Is(err, models.ErrServerUnreachable) || errors.Is(err, context.DeadlineExceeded) {
			summary = "LM Studio is not reachable."
		}
		return []healthcheck.CheckResult{{
			ID:      checkTypeServer,
			Type:    checkTypeServer,
			Status:  healthcheck.StatusError,
			Summary: summary,
			Detail:  err.Error(),
		}}
	}

	loaded := 0
	for _, m := range items {
		if m.Loaded {
			loaded++
		}
	}
	results := []healthcheck.CheckResult{{
		ID:      checkTypeServer,
		Type:    checkTypeServer,
		Status:  healthcheck.StatusOK,
		Summary: fmt.Sprintf("LM Studio is reachable (%d models, %d loaded).", len(items), loaded),
		Metadata: map[string]any{
			"models": len(items),
			"loaded": loaded,
		},
	}}
	if c.evaluationModel != "" {
		results = append(results, c.evaluationCheck(items))
	}
	return results
}

func (c *Checker) evaluationCheck(items []models.Model) healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeEvaluationModel,
		Type:     checkTypeEvaluationModel,
		Subtitle: c.evaluationModel,
		Status:   healthcheck.StatusError,
		Summary:  fmt.Sprintf("Evaluation model %q is not available in LM Studio.", c.evaluationModel),
		Detail:   "Download the model in LM Studio or change [evaluation] model.",
	}
	for _, m := range items {
		if m.ID != c.evaluationModel {
			continue
		}
		item.Detail = ""
		if m.Loaded {
			item.Status = healthcheck.StatusOK
			item.Summary = fmt.Sprintf("Evaluation model %q is loaded.", c.evaluationModel)
		} else {
			item.Status = healthcheck.StatusWarn
			item.Summary = fmt.Sprintf("Evaluation model %q will be loaded on first use.", c.evaluationModel)
		}
		break
	}
	return item
}
