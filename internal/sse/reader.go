package sse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

const readBufferSize = 4 * 1024

// RemoteError is an error frame received from the sender. It is terminal.
type RemoteError struct {
	Message string
	// Partial is the text accumulated before the error frame.
	Partial string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Result is the accumulated output of one stream.
type Result struct {
	Text string
	// Dropped counts malformed frames that were skipped; a non-zero value
	// means Text may be missing fragments.
	Dropped int
	// Completed is true when a [DONE] frame was received. A stream that ends
	// without one is still finalized with whatever arrived.
	Completed bool
}

// Read consumes a frame stream until [DONE], an error frame, or EOF. onChunk,
// if set, observes every chunk as it arrives.
func Read(ctx context.Context, r io.Reader, onChunk func(text string)) (Result, error) {
	return ReadWithLogger(ctx, r, nil, onChunk)
}

// ReadWithLogger is Read with an explicit logger for skipped frames.
func ReadWithLogger(ctx context.Context, r io.Reader, log *slog.Logger, onChunk func(text string)) (Result, error) {
	dec := NewDecoder(log)
	var acc strings.Builder
	buf := make([]byte, readBufferSize)

	// handle reports whether the stream reached a terminal frame.
	handle := func(events []Event) (bool, error) {
		for _, ev := range events {
			switch ev.Kind {
			case KindChunk:
				acc.WriteString(ev.Text)
				if onChunk != nil {
					onChunk(ev.Text)
				}
			case KindDone:
				return true, nil
			case KindError:
				return true, &RemoteError{Message: ev.Message, Partial: acc.String()}
			}
		}
		return false, nil
	}
	result := func(completed bool) Result {
		return Result{Text: acc.String(), Dropped: dec.Dropped(), Completed: completed}
	}

	for {
		if err := ctx.Err(); err != nil {
			return result(false), err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			done, err := handle(dec.Feed(buf[:n]))
			if err != nil {
				return result(false), err
			}
			if done {
				return result(true), nil
			}
		}
		if readErr == nil {
			continue
		}
		if !errors.Is(readErr, io.EOF) {
			return result(false), readErr
		}
		done, err := handle(dec.Flush())
		if err != nil {
			return result(false), err
		}
		return result(done), nil
	}
}
