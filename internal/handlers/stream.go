package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/memohai/promptdeck/internal/metrics"
	"github.com/memohai/promptdeck/internal/sse"
)

const headerRequestID = "X-Request-Id"

// wantsStream reports whether the caller asked for frames (the default) or a
// single JSON body (?stream=false).
func wantsStream(c echo.Context) bool {
	switch c.QueryParam("stream") {
	case "false", "0", "no":
		return false
	default:
		return true
	}
}

// streamEvents writes events as SSE frames until the channel closes. Once the
// client goes away writing stops, but the channel is still drained so the
// producer can finish.
func streamEvents(c echo.Context, log *slog.Logger, endpoint string, started time.Time, events <-chan sse.Event) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	writer := sse.NewWriter(res)
	var writeErr error
	result := metrics.ResultError
	for ev := range events {
		switch ev.Kind {
		case sse.KindDone:
			result = metrics.ResultSuccess
		case sse.KindError:
			log.Warn("generation ended with error", slog.String("message", ev.Message))
		}
		if writeErr != nil {
			continue
		}
		if err := writer.WriteEvent(ev); err != nil {
			writeErr = err
			log.Warn("write stream frame failed", slog.Any("error", err))
		}
	}
	if !writer.Terminated() && writeErr == nil {
		// The producer closed without a terminal event.
		_ = writer.WriteEvent(sse.Error(msgGenerateFailed))
	}
	metrics.GenerationsTotal.WithLabelValues(endpoint, result).Inc()
	metrics.GenerationDurationSeconds.WithLabelValues(endpoint, result).Observe(metrics.Since(started))
	return nil
}

func observeGeneration(endpoint string, started time.Time, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.GenerationsTotal.WithLabelValues(endpoint, result).Inc()
	metrics.GenerationDurationSeconds.WithLabelValues(endpoint, result).Observe(metrics.Since(started))
}
