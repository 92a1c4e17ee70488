package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	// ResultResident marks a resolution served by an already loaded model.
	ResultResident = "resident"
)

var (
	once sync.Once

	// GenerationsTotal counts finished generations by endpoint and outcome.
	GenerationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptdeck",
		Subsystem: "generation",
		Name:      "total",
		Help:      "Total number of generations, labeled by endpoint and result.",
	}, []string{"endpoint", "result"})

	// FirstFragmentSeconds is the delay between starting generation and the
	// first non-empty fragment.
	FirstFragmentSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptdeck",
		Subsystem: "generation",
		Name:      "first_fragment_seconds",
		Help:      "Time from generation start to the first generated fragment.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	GenerationDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptdeck",
		Subsystem: "generation",
		Name:      "duration_seconds",
		Help:      "End-to-end generation time, labeled by endpoint and result.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60, 120, 300, 600},
	}, []string{"endpoint", "result"})

	// ModelLoadsTotal counts model resolutions by outcome.
	ModelLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptdeck",
		Subsystem: "models",
		Name:      "loads_total",
		Help:      "Total number of model resolutions, labeled by result (resident, success, error).",
	}, []string{"result"})

	ModelLoadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "promptdeck",
		Subsystem: "models",
		Name:      "load_duration_seconds",
		Help:      "Time spent waiting for the inference server to load a model.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	// StreamFramesDroppedTotal counts malformed stream frames skipped by the decoder.
	StreamFramesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "promptdeck",
		Subsystem: "stream",
		Name:      "frames_dropped_total",
		Help:      "Total number of malformed stream frames skipped while decoding.",
	})

	AttachmentDecodeErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptdeck",
		Subsystem: "attachments",
		Name:      "decode_errors_total",
		Help:      "Total number of attachments replaced by an inline placeholder, labeled by kind.",
	}, []string{"kind"})
)

// Register registers promptdeck metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			GenerationsTotal,
			FirstFragmentSeconds,
			GenerationDurationSeconds,
			ModelLoadsTotal,
			ModelLoadDurationSeconds,
			StreamFramesDroppedTotal,
			AttachmentDecodeErrorsTotal,
		)
	})
}

// Since returns the seconds elapsed since start.
func Since(start time.Time) float64 {
	return time.Since(start).Seconds()
}
