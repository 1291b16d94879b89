package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GenAIGenerator implements Generator with the Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates a client for apiKey. defaultModel is used for
// requests that do not name one.
func NewGenAIGenerator(ctx context.Context, apiKey, defaultModel string) (*GenAIGenerator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyMissing
	}
	if defaultModel == "" {
		defaultModel = DefaultTextModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: defaultModel}, nil
}

// Name identifies the generator in logs.
func (g *GenAIGenerator) Name() string { return "genai:" + g.model }

// Generate sends req as a single user turn and returns the JSON text of the
// first candidate.
func (g *GenAIGenerator) Generate(ctx context.Context, req Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, classify(err, len(req.Images) > 0)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return []byte(text), nil
}

// classify tags provider failures with the sentinel errors callers map to
// user-facing messages.
func classify(err error, vision bool) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("invalid API key: %w", err)
		case apiErr.Code == http.StatusRequestEntityTooLarge:
			return fmt.Errorf("%w: %w", ErrImageTooLarge, err)
		case vision && apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "image"):
			return fmt.Errorf("%w: %w", ErrInvalidImage, err)
		case apiErr.Code >= http.StatusInternalServerError:
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
