package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/memohai/promptdeck/internal/lmstudio"
	"github.com/memohai/promptdeck/internal/media"
)

// ImageRegistrar hands image bytes to the inference server.
type ImageRegistrar interface {
	RegisterImage(ctx context.Context, name, mime string, raw []byte) (lmstudio.ImageHandle, error)
}

// AttachmentDecoder decodes one upload.
type AttachmentDecoder interface {
	Decode(index int, in media.Input) (media.Attachment, error)
}

// DecodeAll decodes every upload in order. A failure is recorded on its entry
// and never stops the remaining uploads.
func DecodeAll(decoder AttachmentDecoder, inputs []media.Input) []Decoded {
	out := make([]Decoded, 0, len(inputs))
	for i, in := range inputs {
		att, err := decoder.Decode(i, in)
		if err != nil && att.Kind == "" {
			att.Kind, _ = media.DetectKind(in.MimeType, in.Name)
		}
		out = append(out, Decoded{Attachment: att, Err: err})
	}
	return out
}

// Assemble builds the content blocks for req. Text and PDF attachments are
// appended to the user prompt in upload order; images are registered and
// attached as handles in upload order. Attachments that failed to decode or
// register leave an inline placeholder instead. The only error returned is
// the context's.
func Assemble(ctx context.Context, req Request, registrar ImageRegistrar) ([]ContentBlock, error) {
	return assemble(ctx, req, registrar, nil)
}

func assemble(ctx context.Context, req Request, registrar ImageRegistrar, log *slog.Logger) ([]ContentBlock, error) {
	blocks := make([]ContentBlock, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		blocks = append(blocks, ContentBlock{Role: RoleSystem, Text: req.SystemPrompt})
	}

	var (
		section strings.Builder
		images  []lmstudio.ImageHandle
		fileN   int
		imageN  int
	)
	for _, item := range req.Attachments {
		att := item.Attachment
		if att.Kind == media.KindImage {
			imageN++
			if item.Err != nil {
				section.WriteString(decodePlaceholder(string(media.KindImage), imageN))
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			handle, err := registerImage(ctx, registrar, att, imageN)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if log != nil {
					log.Warn("image registration failed", slog.Int("index", att.Index), slog.Any("error", err))
				}
				section.WriteString(registrationPlaceholder(imageN))
				continue
			}
			images = append(images, handle)
			continue
		}

		fileN++
		if item.Err != nil {
			section.WriteString(decodePlaceholder(string(att.Kind), fileN))
			continue
		}
		section.WriteString(fileHeader(string(att.Kind), fileN))
		section.WriteString(att.Text)
	}

	text := req.UserPrompt
	if section.Len() > 0 {
		text += AttachmentSeparator + section.String()
	}
	blocks = append(blocks, ContentBlock{Role: RoleUser, Text: text, Images: images})
	return blocks, nil
}

func registerImage(ctx context.Context, registrar ImageRegistrar, att media.Attachment, n int) (lmstudio.ImageHandle, error) {
	if registrar == nil {
		return lmstudio.ImageHandle{}, &RegistrationError{Index: att.Index, Err: lmstudio.ErrUnsupportedImage}
	}
	handle, err := registrar.RegisterImage(ctx, imageFileName(n, att.Subtype()), att.MIME, att.Raw)
	if err != nil {
		return lmstudio.ImageHandle{}, &RegistrationError{Index: att.Index, Err: err}
	}
	return handle, nil
}
