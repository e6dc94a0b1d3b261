package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInference        = errors.New("inference failed")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrCacheUnavailable = errors.New("cache unavailable")
	ErrLogSink          = errors.New("log sink failure")
	ErrBatchTooLarge    = errors.New("batch too large")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
