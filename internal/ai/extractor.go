package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"atlas/pkg/domain"
)

// MaxImageBytes bounds decoded label images.
const MaxImageBytes = 20 << 20

// ErrNoImage is returned for blank image input.
var ErrNoImage = errors.New("Image data is required for label extraction")

// DecodeImage parses a data URL or bare base64 string. Bare input is treated
// as JPEG.
func DecodeImage(input string) (Image, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Image{}, ErrNoImage
	}
	if !strings.HasPrefix(input, "data:image/") {
		input = "data:image/jpeg;base64," + input
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(input, "data:"), ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data", ErrInvalidImage)
	}
	mime, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" || !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported data url %q", ErrInvalidImage, header)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return Image{}, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return Image{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
		}
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return Image{}, ErrImageTooLarge
	}
	return Image{Data: data, MIMEType: mime}, nil
}

// Extractor reads supplement product labels.
type Extractor struct {
	gen  Generator
	opts options
}

// NewExtractor returns an extractor backed by gen.
func NewExtractor(gen Generator, opts ...Option) *Extractor {
	return &Extractor{gen: gen, opts: buildOptions(DefaultVisionModel, opts)}
}

// ExtractFromLabel decodes imageBase64 and extracts the label contents.
// Returned errors are *Error values whose message is safe to show.
func (e *Extractor) ExtractFromLabel(ctx context.Context, imageBase64 string) (*domain.ExtractedProduct, error) {
	img, err := DecodeImage(imageBase64)
	if err != nil {
		return nil, extractionError(err)
	}
	return e.ExtractFromImage(ctx, img)
}

// ExtractFromImage extracts the label contents of an already decoded image.
func (e *Extractor) ExtractFromImage(ctx context.Context, img Image) (*domain.ExtractedProduct, error) {
	product, err := e.extract(ctx, img)
	if err != nil {
		return nil, extractionError(err)
	}
	return product, nil
}

func (e *Extractor) extract(ctx context.Context, img Image) (*domain.ExtractedProduct, error) {
	if e.gen == nil {
		return nil, ErrAPIKeyMissing
	}
	ctx, cancel := e.opts.bound(ctx)
	defer cancel()
	raw, err := e.gen.Generate(ctx, Request{
		Model:  e.opts.model,
		System: labelSystemPrompt,
		Prompt: labelUserPrompt,
		Images: []Image{img},
		Schema: ExtractionSchema(),
	})
	if err != nil {
		return nil, err
	}
	var product domain.ExtractedProduct
	if err := json.Unmarshal(raw, &product); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}
	product.ApplyDefaults()
	if err := product.Validate(); err != nil {
		return nil, err
	}
	if product.Confidence == 0 {
		product.Confidence = domain.DefaultConfidence
	}
	return &product, nil
}
