package lmstudiochecker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/memohai/promptdeck/internal/healthcheck"
	"github.com/memohai/promptdeck/internal/models"
)

type fakeLister struct {
	items []models.Model
	err   error
}

func (f *fakeLister) List(context.Context) ([]models.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckerReachable(t *testing.T) {
	t.Parallel()

	checker := NewChecker(newTestLogger(), &fakeLister{items: []models.Model{
		{ID: "google/gemma-3-12b", Loaded: true},
		{ID: "qwen2.5-7b"},
	}}, "google/gemma-3-12b")

	items := checker.ListChecks(context.Background())
	if len(items) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(items))
	}
	if items[0].Type != checkTypeServer || items[0].Status != healthcheck.StatusOK {
		t.Fatalf("unexpected server check: %+v", items[0])
	}
	if items[0].Metadata["loaded"] != 1 || items[0].Metadata["models"] != 2 {
		t.Fatalf("unexpected metadata: %+v", items[0].Metadata)
	}
	if items[1].Status != healthcheck.StatusOK {
		t.Fatalf("expected loaded evaluation model to be ok, got %+v", items[1])
	}
}

func TestCheckerEvaluationModelStates(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		items []models.Model
		want  string
	}{
		{name: "not loaded", items: []models.Model{{ID: "eval"}}, want: healthcheck.StatusWarn},
		{name: "missing", items: []models.Model{{ID: "other", Loaded: true}}, want: healthcheck.StatusError},
	}
	for _, tc := range cases {
		items := NewChecker(newTestLogger(), &fakeLister{items: tc.items}, "eval").ListChecks(context.Background())
		if len(items) != 2 || items[1].Status != tc.want {
			t.Fatalf("%s: unexpected checks %+v", tc.name, items)
		}
	}
}

func TestCheckerUnreachable(t *testing.T) {
	t.Parallel()

	checker := NewChecker(newTestLogger(), &fakeLister{err: fmt.Errorf("%w: refused", models.ErrServerUnreachable)}, "eval")
	items := checker.ListChecks(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected only the server check, got %+v", items)
	}
	if items[0].Status != healthcheck.StatusError || items[0].Summary != "LM Studio is not reachable." {
		t.Fatalf("unexpected check: %+v", items[0])
	}

	items = NewChecker(newTestLogger(), &fakeLister{err: errors.New("boom")}, "").ListChecks(context.Background())
	if items[0].Summary != "Failed to list LM Studio models." {
		t.Fatalf("unexpected summary: %q", items[0].Summary)
	}
}

func TestCheckerWithoutLister(t *testing.T) {
	t.Parallel()

	items := NewChecker(nil, nil, "eval").ListChecks(context.Background())
	if len(items) != 1 || items[0].Status != healthcheck.StatusUnknown {
		t.Fatalf("unexpected checks: %+v", items)
	}
}
