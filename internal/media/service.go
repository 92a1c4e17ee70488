package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var dataURIPattern = regexp.MustCompile(`(?s)^data:([^;,]*);base64,(.*)$`)

// Service decodes uploaded attachments. It performs no I/O beyond parsing.
type Service struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewService creates a decoder enforcing maxBytes per attachment.
func NewService(log *slog.Logger, maxBytes int64) *Service {
	if log == nil {
		log = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	return &Service{
		maxBytes: maxBytes,
		logger:   log.With(slog.String("service", "media")),
	}
}

// MaxBytes returns the per-attachment size limit.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Validate applies the upload policy without decoding the payload: the URI
// must be well formed, the type supported and the size within limits.
func (s *Service) Validate(in Input) (Kind, error) {
	mime, payload, err := splitDataURI(in.Data)
	if err != nil {
		return "", err
	}
	if declared := strings.TrimSpace(in.MimeType); declared != "" {
		mime = declared
	}
	kind, ok := DetectKind(mime, in.Name)
	if !ok && isGenericMIME(mime) {
		if raw, err := decodeBase64(payload, s.maxBytes); err == nil {
			kind, ok = DetectKind(sniffMIME(raw), in.Name)
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, coalesce(mime, "unknown"))
	}
	if size := EstimateDecodedSize(payload); size > s.maxBytes {
		return "", fmt.Errorf("%w: max %d bytes", ErrAssetTooLarge, s.maxBytes)
	}
	return kind, nil
}

// Decode turns one upload into typed content. Failures are returned as a
// *DecodeError carrying index; the Attachment still reports the detected Kind
// when it is known so the caller can render a placeholder.
func (s *Service) Decode(index int, in Input) (Attachment, error) {
	att, err := Decode(index, in, s.maxBytes)
	if err != nil {
		s.logger.Warn("attachment decode failed",
			slog.Int("index", index),
			slog.String("name", in.Name),
			slog.Any("error", err),
		)
	}
	return att, err
}

// Decode is the stateless form of Service.Decode.
func Decode(index int, in Input, maxBytes int64) (Attachment, error) {
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	att := Attachment{Index: index, Name: strings.TrimSpace(in.Name)}

	uriMIME, payload, err := splitDataURI(in.Data)
	if err != nil {
		return att, &DecodeError{Index: index, Err: err}
	}
	raw, err := decodeBase64(payload, maxBytes)
	if err != nil {
		return att, &DecodeError{Index: index, Err: err}
	}

	mime := coalesce(strings.TrimSpace(in.MimeType), uriMIME)
	if isGenericMIME(mime) {
		mime = sniffMIME(raw)
	}
	kind, ok := DetectKind(mime, in.Name)
	if !ok {
		return att, &DecodeError{Index: index, Err: fmt.Errorf("%w: %s", ErrUnsupportedType, mime)}
	}
	att.Kind = kind
	att.MIME = baseMIME(mime)
	att.Raw = raw

	switch kind {
	case KindPDF:
		text, err := ExtractPDFText(raw)
		if err != nil {
			return att, &DecodeError{Index: index, Kind: kind, Err: err}
		}
		att.Text = text
	case KindText:
		att.Text = string(raw)
	}
	return att, nil
}

// ParseDataURI validates the data:<mime>;base64,<payload> shape and returns
// the declared MIME type and decoded bytes.
func ParseDataURI(uri string, maxBytes int64) (string, []byte, error) {
	mime, payload, err := splitDataURI(uri)
	if err != nil {
		return "", nil, err
	}
	raw, err := decodeBase64(payload, maxBytes)
	if err != nil {
		return "", nil, err
	}
	return mime, raw, nil
}

// EncodeDataURI is the inverse of ParseDataURI.
func EncodeDataURI(mime string, raw []byte) string {
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw)
}

func splitDataURI(uri string) (string, string, error) {
	match := dataURIPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if match == nil {
		return "", "", ErrMalformedDataURI
	}
	payload := strings.TrimSpace(match[2])
	if payload == "" {
		return "", "", ErrEmptyPayload
	}
	return strings.TrimSpace(match[1]), payload, nil
}

func decodeBase64(payload string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = MaxAssetBytes
	}
	encoding := base64.StdEncoding
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		encoding = base64.RawStdEncoding
	}
	raw, err := ReadAllWithLimit(base64.NewDecoder(encoding, strings.NewReader(payload)), maxBytes)
	if err != nil {
		var corrupt base64.CorruptInputError
		if errors.As(err, &corrupt) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}
	return raw, nil
}

func sniffMIME(raw []byte) string {
	return baseMIME(mimetype.Detect(raw).String())
}

func isGenericMIME(mime string) bool {
	switch baseMIME(mime) {
	case "", "application/octet-stream":
		return true
	default:
		return false
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
