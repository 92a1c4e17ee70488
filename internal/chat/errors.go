package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/memohai/promptdeck/internal/models"
)

var (
	// ErrConnectionRefused indicates the inference server dropped or refused the connection.
	ErrConnectionRefused = errors.New("connection to inference server failed")
	// ErrInsufficientResources is shared with model loading.
	ErrInsufficientResources = models.ErrInsufficientResources
)

// GenerationError is a generation failure that matches no known category.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return e.Err.Error()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// RegistrationError reports an image the inference server would not accept.
// It only affects that image.
type RegistrationError struct {
	Index int
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register image %d: %v", e.Index, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ClassifyError maps a raw generation failure onto the error taxonomy by
// matching the server's message text. Context errors pass through.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var genErr *GenerationError
	if errors.Is(err, ErrInsufficientResources) || errors.Is(err, ErrConnectionRefused) || errors.As(err, &genErr) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient system resources"):
		return fmt.Errorf("%w: %s", ErrInsufficientResources, msg)
	case strings.Contains(msg, "connection"):
		return fmt.Errorf("%w: %s", ErrConnectionRefused, msg)
	default:
		return &GenerationError{Err: err}
	}
}

// DescribeError returns the message shown to the caller for a terminal
// failure of model resolution or generation.
func DescribeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrServerUnreachable), errors.Is(err, ErrConnectionRefused):
		return MessageServerUnreachable
	case errors.Is(err, ErrInsufficientResources):
		return MessageInsufficientResources
	case errors.Is(err, models.ErrModelNotFound):
		return fmt.Sprintf("%s: %v", MessageModelNotFound, err)
	default:
		return err.Error()
	}
}
