package sse

import (
	"bufio"
	"io"
	"net/http"
)

// Writer writes frames sequentially and flushes each one to the client. It
// refuses any event after the terminal one.
type Writer struct {
	out        *bufio.Writer
	flusher    http.Flusher
	terminated bool
}

// NewWriter wraps w. If w is an http.Flusher every frame is pushed to the
// network immediately.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{
		out:     bufio.NewWriter(w),
		flusher: flusher,
	}
}

// WriteEvent writes one frame.
func (w *Writer) WriteEvent(e Event) error {
	if w.terminated {
		return ErrStreamClosed
	}
	frame, err := Encode(e)
	if err != nil {
		return err
	}
	if e.Terminal() {
		w.terminated = true
	}
	if _, err := w.out.Write(frame); err != nil {
		return err
	}
	if err := w.out.Flush(); err != nil {
		return err
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// Terminated reports whether a done or error frame has been written.
func (w *Writer) Terminated() bool {
	return w.terminated
}
