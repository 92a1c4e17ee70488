package media

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedDataURI indicates the input is not a data:<mime>;base64,<payload> URI.
	ErrMalformedDataURI = errors.New("malformed data uri")
	// ErrEmptyPayload indicates the data URI carries no bytes.
	ErrEmptyPayload = errors.New("attachment payload is empty")
	// ErrUnsupportedType indicates the MIME type is not image, pdf or text.
	ErrUnsupportedType = errors.New("unsupported attachment type")
	// ErrAssetTooLarge indicates the payload exceeds the configured max attachment size.
	ErrAssetTooLarge = errors.New("attachment too large")
	// ErrPDFExtraction indicates the PDF could not be parsed into text.
	ErrPDFExtraction = errors.New("pdf text extraction failed")
)

// DecodeError reports a failure scoped to one attachment. Callers usually
// substitute an inline placeholder instead of failing the whole request.
type DecodeError struct {
	Index int
	Kind  Kind
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("attachment %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("attachment %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
