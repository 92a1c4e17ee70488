package lmstudio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnreachable indicates the server could not be contacted at all.
	ErrUnreachable = errors.New("lm studio is unreachable")
	// ErrUnsupportedImage indicates an image format the server cannot ingest.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// APIError is a non-2xx response from the native REST API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lm studio error (%d): %s", e.StatusCode, e.Message)
}

// apiErrorMessage extracts a human readable message from an error body. LM
// Studio answers with either {"error": "..."} or {"error": {"message": "..."}}.
func apiErrorMessage(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var text string
		if json.Unmarshal(payload.Error, &text) == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &nested) == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
		if strings.TrimSpace(payload.Message) != "" {
			return strings.TrimSpace(payload.Message)
		}
	}
	return strings.TrimSpace(string(body))
}
