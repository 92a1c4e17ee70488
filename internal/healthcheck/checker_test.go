package healthcheck

import (
	"context"
	"testing"
)

type staticChecker []CheckResult

func (s staticChecker) ListChecks(context.Context) []CheckResult { return s }

func TestRunConcatenatesInOrder(t *testing.T) {
	t.Parallel()

	got := Run(context.Background(),
		staticChecker{{ID: "a", Status: StatusOK}},
		nil,
		staticChecker{{ID: "b", Status: StatusWarn}, {ID: "c", Status: StatusOK}},
	)
	if len(got) != 3 || got[0].ID != "a" || got[1].ID != "b" || got[2].ID != "c" {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestOverall(t *testing.T) {
	t.Parallel()

	cases := []struct {
		statuses []string
		want     string
	}{
		{statuses: nil, want: StatusOK},
		{statuses: []string{StatusOK, StatusOK}, want: StatusOK},
		{statuses: []string{StatusOK, StatusUnknown}, want: StatusUnknown},
		{statuses: []string{StatusWarn, StatusUnknown}, want: StatusWarn},
		{statuses: []string{StatusWarn, StatusError, StatusOK}, want: StatusError},
	}
	for _, tc := range cases {
		results := make([]CheckResult, 0, len(tc.statuses))
		for _, s := range tc.statuses {
			results = append(results, CheckResult{Status: s})
		}
		if got := Overall(results); got != tc.want {
			t.Fatalf("statuses=%v want=%q got=%q", tc.statuses, tc.want, got)
		}
	}
}
