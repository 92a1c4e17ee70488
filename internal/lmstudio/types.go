package lmstudio

import (
	openai "github.com/sashabaranov/go-openai"
)

const (
	StateLoaded    = "loaded"
	StateNotLoaded = "not-loaded"
)

// ModelInfo is one entry of the native model listing.
type ModelInfo struct {
	ID                string `json:"id"`
	Object            string `json:"object,omitempty"`
	Type              string `json:"type,omitempty"`
	Publisher         string `json:"publisher,omitempty"`
	Arch              string `json:"arch,omitempty"`
	CompatibilityType string `json:"compatibility_type,omitempty"`
	Quantization      string `json:"quantization,omitempty"`
	State             string `json:"state,omitempty"`
	MaxContextLength  int    `json:"max_context_length,omitempty"`
}

// Loaded reports whether the model is resident in memory.
func (m ModelInfo) Loaded() bool {
	return m.State == StateLoaded
}

type modelList struct {
	Data []ModelInfo `json:"data"`
}

type loadRequest struct {
	Model string `json:"model"`
}

// ImageHandle references image bytes prepared for one chat request. Handles
// are not reused across requests.
type ImageHandle struct {
	Name string
	MIME string
	URL  string
}

// ChatRequest is a streaming chat completion request.
type ChatRequest struct {
	Model          string
	Messages       []openai.ChatCompletionMessage
	ResponseFormat *openai.ChatCompletionResponseFormat
}

// Stream yields generated text fragments. Recv returns io.EOF after the last
// fragment. Fragments may be empty.
type Stream interface {
	Recv() (string, error)
	Close() error
}
