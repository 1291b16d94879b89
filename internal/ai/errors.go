package ai

import (
	"context"
	"errors"
	"strings"
)

// User-facing messages.
const (
	MsgAPIConfig        = "API configuration error. Please check your API key."
	MsgNetwork          = "Network error. Please check your connection and try again."
	MsgRateLimit        = "Rate limit exceeded. Please wait a moment and try again."
	MsgImageTooLarge    = "Image is too large. Please use a smaller, clearer photo."
	MsgInvalidImage     = "Invalid image format. Please use a clear JPEG or PNG photo."
	MsgVisionNotEnabled = "Vision analysis not available. Please check your API access."
)

// analysisError maps a failure of AnalyzeSupplements to its user message.
func analysisError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrAPIKeyMissing) || strings.Contains(msg, "API key"):
		return &Error{Message: MsgAPIConfig, Err: err}
	case errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(msg, "network") || strings.Contains(msg, "timeout"):
		return &Error{Message: MsgNetwork, Err: err}
	case errors.Is(err, ErrRateLimited) || strings.Contains(msg, "rate limit"):
		return &Error{Message: MsgRateLimit, Err: err}
	case strings.Contains(msg, "supplement") || strings.Contains(msg, "dosage"):
		return &Error{Message: msg, Err: err}
	}
	return &Error{Message: "Analysis failed: " + msg, Err: err}
}

// extractionError maps a failure of ExtractFromLabel to its user message.
func extractionError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, ErrImageTooLarge) || strings.Contains(msg, "image_too_large"):
		return &Error{Message: MsgImageTooLarge, Err: err}
	case errors.Is(err, ErrInvalidImage) || strings.Contains(msg, "invalid_image_format"):
		return &Error{Message: MsgInvalidImage, Err: err}
	case errors.Is(err, ErrVisionUnavailable) || strings.Contains(msg, "vision_not_available"):
		return &Error{Message: MsgVisionNotEnabled, Err: err}
	}
	return &Error{Message: "Label extraction failed: " + msg, Err: err}
}

// LabelError maps a label scanning failure outside the extractor, such as a
// bad upload, to the same messages ExtractFromLabel returns.
func LabelError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return extractionError(err)
}
