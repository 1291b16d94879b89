// Package ai talks to a structured-output generative model to analyze a
// supplement stack and to read supplement product labels.
package ai

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"
)

// Default model names.
const (
	DefaultTextModel   = "gemini-2.5-flash"
	DefaultVisionModel = "gemini-2.5-flash"
)

// Config selects credentials and models.
type Config struct {
	APIKey      string        `mapstructure:"api_key"`
	TextModel   string        `mapstructure:"text_model"`
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Image is an inline image attached to a request.
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is one structured generation call. The response must be a JSON
// document matching Schema.
type Request struct {
	Model  string
	System string
	Prompt string
	Images []Image
	Schema *genai.Schema
}

// Generator produces a JSON document for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]byte, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) ([]byte, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) ([]byte, error) { return f(ctx, req) }

var (
	// ErrAPIKeyMissing is returned when no API key or generator is configured.
	ErrAPIKeyMissing = errors.New("API key not configured")
	// ErrRateLimited is returned when the model provider throttles a call.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUnavailable is returned when the provider cannot be reached.
	ErrUnavailable = errors.New("network unavailable")
	// ErrImageTooLarge is returned for images over MaxImageBytes.
	ErrImageTooLarge = errors.New("image_too_large")
	// ErrInvalidImage is returned when image data cannot be decoded.
	ErrInvalidImage = errors.New("invalid_image_format")
	// ErrVisionUnavailable is returned when the model cannot accept images.
	ErrVisionUnavailable = errors.New("vision_not_available")
	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Error carries a user-facing message and the underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }
