package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrNoServicesRecommended = errors.New("no services recommended")
	ErrAIService             = errors.New("ai service failure")
	ErrRenderFailed          = errors.New("document render failed")
	ErrStorage               = errors.New("storage failure")
	ErrTemporary             = errors.New("temporary failure")

	// Compression pipeline failures. These never reach the HTTP layer: the
	// pipeline falls back to persisting the original document.
	ErrUpload                = errors.New("document upload failed")
	ErrCompressionStart      = errors.New("compression start failed")
	ErrCompressionTaskFailed = errors.New("compression task failed")
	ErrCompressionTimeout    = errors.New("compression timed out")
	ErrDownload              = errors.New("compressed document download failed")
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
