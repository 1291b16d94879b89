// Package labels turns a photo of a supplement label into a reviewable draft
// and, once confirmed, into a product with its supplements.
package labels

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"atlas/internal/ai"
	"atlas/internal/blob"
	"atlas/internal/draft"
	"atlas/pkg/domain"
)

// KeyPrefix namespaces label photos in the blob store.
const KeyPrefix = "labels/"

// Extractor reads a decoded label image. *ai.Extractor satisfies it.
type Extractor interface {
	ExtractFromImage(ctx context.Context, img ai.Image) (*domain.ExtractedProduct, error)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator overrides the uuid used in blob keys.
func WithIDGenerator(fn func() string) Option {
	return func(s *Scanner) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Scanner ties the extractor, the blob store and the draft together.
type Scanner struct {
	blobs     blob.Store
	extractor Extractor
	drafts    *draft.Store
	newID     func() string
	logger    *zap.Logger
}

// NewScanner returns a scanner. A nil drafts gets a fresh store.
func NewScanner(blobs blob.Store, extractor Extractor, drafts *draft.Store, opts ...Option) *Scanner {
	if drafts == nil {
		drafts = draft.NewStore()
	}
	s := &Scanner{
		blobs:     blobs,
		extractor: extractor,
		drafts:    drafts,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Drafts exposes the draft store.
func (s *Scanner) Drafts() *draft.Store { return s.drafts }

// Scan decodes imageBase64, extracts the label and keeps the result as the
// pending draft. The photo is only stored once extraction succeeded. A
// previous draft is replaced and its photo removed.
func (s *Scanner) Scan(ctx context.Context, imageBase64 string) (draft.Entry, error) {
	img, err := ai.DecodeImage(imageBase64)
	if err != nil {
		return draft.Entry{}, ai.LabelError(err)
	}
	product, err := s.extractor.ExtractFromImage(ctx, img)
	if err != nil {
		return draft.Entry{}, ai.LabelError(err)
	}

	key := KeyPrefix + s.newID() + extension(img.MIMEType)
	if _, err := s.blobs.Put(ctx, key, bytes.NewReader(img.Data), blob.PutOptions{
		ContentType: img.MIMEType,
		Metadata:    map[string]string{"product": product.Product.Name},
	}); err != nil {
		return draft.Entry{}, fmt.Errorf("store label image: %w", err)
	}

	s.dropImage(ctx, s.drafts.Get())
	entry := draft.Entry{Product: *product, ImageKey: key}
	s.drafts.Set(entry)
	s.logger.Info("label scanned",
		zap.String("product", product.Product.Name),
		zap.Int("supplements", len(product.Supplements)),
		zap.Float64("confidence", product.Confidence),
		zap.String("image", key))
	return entry, nil
}

// Draft returns the pending entry with a prefilled form, or draft.ErrNoDraft.
func (s *Scanner) Draft() (draft.Entry, draft.Form, error) {
	e := s.drafts.Get()
	if e == nil {
		return draft.Entry{}, draft.Form{}, draft.ErrNoDraft
	}
	return *e, draft.FormFromDraft(*e), nil
}

// Commit saves form. When form carries no image URI, the draft's photo is
// linked through blob.URL.
func (s *Scanner) Commit(ctx context.Context, target draft.Target, form draft.Form) (draft.Saved, error) {
	if e := s.drafts.Get(); e != nil && form.ImageURI == "" && e.ImageKey != "" {
		link, err := blob.URL(ctx, s.blobs, e.ImageKey)
		if err != nil {
			s.logger.Warn("label image link unavailable", zap.String("image", e.ImageKey), zap.Error(err))
		} else {
			form.ImageURI = link
		}
	}
	return s.drafts.Commit(ctx, target, form)
}

// Discard drops the pending draft and its photo.
func (s *Scanner) Discard(ctx context.Context) error {
	e := s.drafts.Get()
	if e == nil {
		return draft.ErrNoDraft
	}
	s.drafts.Clear()
	if e.ImageKey == "" {
		return nil
	}
	if _, err := s.blobs.Delete(ctx, e.ImageKey); err != nil {
		return fmt.Errorf("delete label image: %w", err)
	}
	return nil
}

func (s *Scanner) dropImage(ctx context.Context, e *draft.Entry) {
	if e == nil || e.ImageKey == "" {
		return
	}
	if _, err := s.blobs.Delete(ctx, e.ImageKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("delete replaced label image", zap.String("image", e.ImageKey), zap.Error(err))
	}
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/heic":
		return ".heic"
	default:
		return ".img"
	}
}
