package models

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/memohai/promptdeck/internal/lmstudio"
)

var (
	// ErrServerUnreachable indicates the inference server refused or dropped the connection.
	ErrServerUnreachable = errors.New("inference server is unreachable")
	// ErrInsufficientResources indicates the server ran out of memory loading a model.
	ErrInsufficientResources = errors.New("insufficient system resources")
	// ErrModelNotFound indicates the server does not know the requested model.
	ErrModelNotFound = errors.New("model not found")
	// ErrLoadFailed marks a load failure that matches no other category.
	ErrLoadFailed = errors.New("model load failed")
)

// LoadError wraps a failed load with its category (one of the sentinels above)
// and the underlying server error, so both errors.Is and errors.As work.
type LoadError struct {
	ModelID string
	Reason  error
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %q: %v", e.ModelID, e.Err)
}

func (e *LoadError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Reason != nil {
		out = append(out, e.Reason)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Handle identifies a model that is resident on the inference server.
type Handle struct {
	ID string
	// Resident is true when no load was needed.
	Resident bool
}

// Model is one entry of the models listing.
type Model struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Loaded           bool   `json:"loaded"`
	Type             string `json:"type,omitempty"`
	Publisher        string `json:"publisher,omitempty"`
	Arch             string `json:"arch,omitempty"`
	Quantization     string `json:"quantization,omitempty"`
	MaxContextLength int    `json:"maxContextLength,omitempty"`
}

type ListResponse struct {
	Data []Model `json:"data"`
}

var weightExtensions = []string{".gguf", ".safetensors", ".bin", ".mlx"}

// DisplayName derives a readable name from a model identifier: the final
// path segment with a weight file extension removed.
func DisplayName(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	name := path.Base(strings.ReplaceAll(id, "\\", "/"))
	if name == "." || name == "/" {
		return id
	}
	lower := strings.ToLower(name)
	for _, ext := range weightExtensions {
		if strings.HasSuffix(lower, ext) && len(name) > len(ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

func fromInfo(info lmstudio.ModelInfo) Model {
	return Model{
		ID:               info.ID,
		Name:             DisplayName(info.ID),
		Loaded:           info.Loaded(),
		Type:             info.Type,
		Publisher:        info.Publisher,
		Arch:             info.Arch,
		Quantization:     info.Quantization,
		MaxContextLength: info.MaxContextLength,
	}
}
