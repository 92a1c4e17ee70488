package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(ModelLoadsTotal.WithLabelValues(ResultResident))
	ModelLoadsTotal.WithLabelValues(ResultResident).Inc()
	if got := testutil.ToFloat64(ModelLoadsTotal.WithLabelValues(ResultResident)); got != before+1 {
		t.Fatalf("expected counter %v, got %v", before+1, got)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "promptdeck_models_loads_total" {
			found = true
		}
	}
	if !found {
		t.Fatalf("promptdeck_models_loads_total not registered")
	}
}
