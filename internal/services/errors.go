package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFormat     = errors.New("format error")
	ErrNotFound   = errors.New("not found")
	ErrProbe      = errors.New("probe error")
	ErrValidation = errors.New("validation error")
	ErrEncode     = errors.New("encode error")
	ErrLocked     = errors.New("locked")
)

// Wrap builds an error message that includes operation context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, subject, operation, message string, err error) error {
	detail := buildDetail(subject, operation, message)
	if marker == nil {
		marker = ErrEncode
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, used when
// persisting job outcomes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return "format"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProbe):
		return "probe"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrEncode):
		return "encode"
	default:
		return "unknown"
	}
}

// Skippable reports whether a batch caller should skip the file and keep going.
func Skippable(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrProbe)
}

func buildDetail(subject, operation, message string) string {
	parts := make([]string, 0, 3)
	if subject = strings.TrimSpace(subject); subject != "" {
		parts = append(parts, subject)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}
