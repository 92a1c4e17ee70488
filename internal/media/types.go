package media

import (
	"strings"
)

// Kind classifies an attachment. It is derived once from the MIME type or
// file name and never changes afterwards.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
	KindText  Kind = "text"
)

// Input is an attachment as uploaded by the caller.
type Input struct {
	// Data is a data:<mime>;base64,<payload> URI.
	Data string `json:"data"`
	// MimeType is the declared type; the URI's type is used when empty.
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// Attachment is a decoded upload. Raw is always non-empty; Text is set for
// pdf and text attachments.
type Attachment struct {
	Index int
	Kind  Kind
	MIME  string
	Name  string
	Raw   []byte
	Text  string
}

// Subtype returns the MIME subtype ("png" for image/png). It names image
// files handed to the inference server.
func (a Attachment) Subtype() string {
	mime := baseMIME(a.MIME)
	if idx := strings.Index(mime, "/"); idx >= 0 && idx < len(mime)-1 {
		return mime[idx+1:]
	}
	return "bin"
}

// DetectKind maps a MIME type (or, for text, a .txt/.md file name) to a Kind.
func DetectKind(mime, name string) (Kind, bool) {
	mime = baseMIME(mime)
	switch {
	case strings.HasPrefix(mime, "image/"):
		return KindImage, true
	case mime == "application/pdf":
		return KindPDF, true
	case strings.HasPrefix(mime, "text/"):
		return KindText, true
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md") {
		return KindText, true
	}
	return "", false
}

func baseMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
