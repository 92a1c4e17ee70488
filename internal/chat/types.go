package chat

import (
	openai "github.com/sashabaranov/go-openai"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/media"
)

// Role tags a content block.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// ContentBlock is one role-tagged unit of model input. An assembled sequence
// holds at most one system block, always first, and exactly one user block.
type ContentBlock struct {
	Role   Role
	Text   string
	Images []lmstudio.ImageHandle
}

// Decoded pairs an upload with the outcome of decoding it. Err is usually a
// *media.DecodeError; Attachment.Kind is still set when it could be detected.
type Decoded struct {
	Attachment media.Attachment
	Err        error
}

// Request is one generation request after attachment decoding.
type Request struct {
	ModelID      string
	SystemPrompt string
	UserPrompt   string
	Attachments  []Decoded
}

// Options tune a single generation.
type Options struct {
	// Endpoint labels metrics and logs ("generate", "evaluate").
	Endpoint       string
	RequestID      string
	ResponseFormat *openai.ChatCompletionResponseFormat
}

func (o Options) endpoint() string {
	if o.Endpoint == "" {
		return "generate"
	}
	return o.Endpoint
}
