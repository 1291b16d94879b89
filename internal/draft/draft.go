// Package draft holds the most recent label extraction until the user has
// reviewed it and saved it as a product with its supplements.
package draft

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"atlas/pkg/domain"
)

var (
	// ErrNoDraft is returned by Commit when nothing is pending review.
	ErrNoDraft = errors.New("no extraction draft to review")
	// ErrMissingData is returned by Commit for a form without a product name
	// or without supplements.
	ErrMissingData = errors.New("Please ensure product name and at least one supplement.")
)

// Entry is a pending extraction and the blob key of its label photo.
type Entry struct {
	Product  domain.ExtractedProduct `json:"product"`
	ImageKey string                  `json:"imageKey,omitempty"`
}

func (e Entry) clone() Entry {
	e.Product.Product.Warnings = slices.Clone(e.Product.Product.Warnings)
	e.Product.Supplements = slices.Clone(e.Product.Supplements)
	return e
}

// Store keeps at most one Entry.
type Store struct {
	mu    sync.Mutex
	entry *Entry
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Set replaces the pending entry.
func (s *Store) Set(e Entry) {
	c := e.clone()
	s.mu.Lock()
	s.entry = &c
	s.mu.Unlock()
}

// Get returns a copy of the pending entry, or nil.
func (s *Store) Get() *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return nil
	}
	c := s.entry.clone()
	return &c
}

// Clear drops the pending entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
}

// ProductForm is the editable product part of a review.
type ProductForm struct {
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Timing string `json:"timing"`
}

// SupplementForm is one editable supplement row.
type SupplementForm struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Timing    string `json:"timing"`
}

// Form is what the user confirms before saving.
type Form struct {
	Product     ProductForm      `json:"product"`
	Supplements []SupplementForm `json:"supplements"`
	ImageURI    string           `json:"imageUri,omitempty"`
}

// FormFromDraft prefills a review form. The product's suggested use becomes
// its timing and the fallback timing of every supplement.
func FormFromDraft(e Entry) Form {
	f := Form{
		Product: ProductForm{
			Name:   e.Product.Product.Name,
			Brand:  e.Product.Product.Brand,
			Timing: e.Product.Product.SuggestedUse,
		},
		Supplements: make([]SupplementForm, 0, len(e.Product.Supplements)),
	}
	for _, s := range e.Product.Supplements {
		f.Supplements = append(f.Supplements, SupplementForm{
			Name:      s.Name,
			Dosage:    s.Dosage,
			Frequency: or(s.Frequency, "Daily"),
			Timing:    or(s.Timing, f.Product.Timing),
		})
	}
	return f
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// Target receives the saved records. *core.Service satisfies it.
type Target interface {
	AddProduct(ctx context.Context, in domain.NewProduct) (domain.Product, domain.Result, error)
	AddSupplement(ctx context.Context, in domain.NewSupplement) (domain.Supplement, domain.Result, error)
}

// Saved reports what Commit stored. Review lists the extraction issues a
// person should double check; they never block the save.
type Saved struct {
	Product     domain.Product          `json:"product"`
	Supplements []domain.Supplement     `json:"supplements"`
	Skipped     int                     `json:"skipped"`
	Review      domain.ExtractionReview `json:"review"`
	Warnings    []domain.Violation      `json:"warnings,omitempty"`
}

// Commit saves form as a product plus its supplements and clears the draft.
// Rows without a name or dosage are skipped. If a supplement fails after the
// product was created, the draft is kept so the user can retry.
func (s *Store) Commit(ctx context.Context, target Target, form Form) (Saved, error) {
	entry := s.Get()
	if entry == nil {
		return Saved{}, ErrNoDraft
	}
	name := strings.TrimSpace(form.Product.Name)
	if name == "" || len(form.Supplements) == 0 {
		return Saved{}, ErrMissingData
	}
	timing := strings.TrimSpace(form.Product.Timing)

	saved := Saved{Review: domain.ValidateExtractedData(entry.Product)}
	product, res, err := target.AddProduct(ctx, domain.NewProduct{
		Name:     name,
		Brand:    strings.TrimSpace(form.Product.Brand),
		Timing:   timing,
		ImageURI: form.ImageURI,
	})
	if err != nil {
		return Saved{}, fmt.Errorf("save product: %w", err)
	}
	saved.Product = product
	saved.Warnings = append(saved.Warnings, res.Violations...)

	for _, row := range form.Supplements {
		rowName, dosage := strings.TrimSpace(row.Name), strings.TrimSpace(row.Dosage)
		if rowName == "" || dosage == "" {
			saved.Skipped++
			continue
		}
		sup, res, err := target.AddSupplement(ctx, domain.NewSupplement{
			Name:      rowName,
			Dosage:    dosage,
			Frequency: or(strings.TrimSpace(row.Frequency), "Daily"),
			Timing:    or(strings.TrimSpace(row.Timing), timing),
			ProductID: product.ID,
		})
		if err != nil {
			return saved, fmt.Errorf("save supplement %s: %w", rowName, err)
		}
		saved.Supplements = append(saved.Supplements, sup)
		saved.Warnings = append(saved.Warnings, res.Violations...)
	}
	s.Clear()
	return saved, nil
}
