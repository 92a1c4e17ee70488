// Package sse frames generation output as server-sent events and decodes it
// back on the receiving side.
//
// Every frame is a single "data: <payload>\n\n" record. The payload is
// {"chunk": text}, {"error": message} or the literal [DONE].
package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	dataPrefix  = "data: "
	doneMarker  = "[DONE]"
	frameSuffix = "\n\n"
)

var (
	// ErrMalformedFrame indicates a data line whose payload is not valid JSON.
	ErrMalformedFrame = errors.New("malformed stream frame")
	// ErrStreamClosed is returned when writing after the terminal event.
	ErrStreamClosed = errors.New("stream already terminated")
)

// Kind is the closed set of stream event kinds.
type Kind string

const (
	KindChunk Kind = "chunk"
	KindDone  Kind = "done"
	KindError Kind = "error"
)

// Event is one unit of the generation stream. Text is set for chunks,
// Message for errors.
type Event struct {
	Kind    Kind
	Text    string
	Message string
}

func Chunk(text string) Event { return Event{Kind: KindChunk, Text: text} }

func Done() Event { return Event{Kind: KindDone} }

func Error(message string) Event { return Event{Kind: KindError, Message: message} }

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

type framePayload struct {
	Chunk *string `json:"chunk,omitempty"`
	Error *string `json:"error,omitempty"`
}

// Encode renders e as one complete frame including the blank-line delimiter.
func Encode(e Event) ([]byte, error) {
	var payload []byte
	switch e.Kind {
	case KindDone:
		payload = []byte(doneMarker)
	case KindChunk:
		text := e.Text
		data, err := marshalPayload(framePayload{Chunk: &text})
		if err != nil {
			return nil, err
		}
		payload = data
	case KindError:
		msg := e.Message
		data, err := marshalPayload(framePayload{Error: &msg})
		if err != nil {
			return nil, err
		}
		payload = data
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Kind)
	}
	frame := make([]byte, 0, len(dataPrefix)+len(payload)+len(frameSuffix))
	frame = append(frame, dataPrefix...)
	frame = append(frame, payload...)
	frame = append(frame, frameSuffix...)
	return frame, nil
}

func marshalPayload(p framePayload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseFrame decodes one line of the stream. ok is false for lines that carry
// no event: blank separators, comments, other fields and JSON objects with
// neither chunk nor error. A data line with invalid JSON yields
// ErrMalformedFrame.
func ParseFrame(line string) (ev Event, ok bool, err error) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false, nil
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneMarker {
		return Done(), true, nil
	}
	var p framePayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	switch {
	case p.Error != nil:
		return Error(*p.Error), true, nil
	case p.Chunk != nil:
		return Chunk(*p.Chunk), true, nil
	default:
		return Event{}, false, nil
	}
}
