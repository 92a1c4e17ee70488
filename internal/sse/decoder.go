package sse

import (
	"bytes"
	"log/slog"
	"unicode/utf8"

	"github.com/memohai/promptdeck/internal/metrics"
)

// Decoder turns arbitrarily split network reads back into events. It keeps
// the trailing incomplete line between calls to Feed. A Decoder belongs to a
// single stream and is not safe for concurrent use.
type Decoder struct {
	buf     []byte
	dropped int
	logger  *slog.Logger
}

func NewDecoder(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	return &Decoder{logger: log.With(slog.String("component", "sse_decoder"))}
}

// Feed appends p to the carry-over buffer and returns the events of every
// complete line, in order. Malformed frames are skipped and counted.
func (d *Decoder) Feed(p []byte) []Event {
	d.buf = append(d.buf, p...)
	var events []Event
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := string(d.buf[:idx])
		d.buf = d.buf[idx+1:]
		if ev, ok := d.parse(line); ok {
			events = append(events, ev)
		}
	}
	// Reclaim the consumed prefix once the buffer is drained.
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return events
}

// Flush processes a residual line left without a trailing newline, as
// happens when the connection closes right after the last frame.
func (d *Decoder) Flush() []Event {
	if len(d.buf) == 0 {
		return nil
	}
	line := string(d.buf)
	d.buf = nil
	if ev, ok := d.parse(line); ok {
		return []Event{ev}
	}
	return nil
}

// Dropped returns the number of malformed frames skipped so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Pending returns the number of buffered bytes not yet forming a line.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

func (d *Decoder) parse(line string) (Event, bool) {
	ev, ok, err := ParseFrame(line)
	if err != nil {
		d.dropped++
		metrics.StreamFramesDroppedTotal.Inc()
		d.logger.Warn("skipping malformed stream frame",
			slog.String("line_prefix", truncate(line, 120)),
			slog.Any("error", err),
		)
		return Event{}, false
	}
	return ev, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
