package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Extraction defaults applied to fields the vision model leaves empty.
const (
	DefaultExtractedFrequency = "Daily"
	DefaultExtractedTiming    = "As directed"
	DefaultExtractedForm      = "Tablet/Capsule"
	DefaultExtractedCategory  = "other"
	// DefaultConfidence replaces a missing or zero confidence score.
	DefaultConfidence = 95
	// LowConfidenceThreshold marks extractions that need manual review.
	LowConfidenceThreshold = 80
)

// ProductCategories lists the label categories the extractor may report.
var ProductCategories = []string{"vitamins", "minerals", "herbs", "amino_acids", "probiotics", "other"}

// ExtractedProduct is the structured result of reading a product label.
type ExtractedProduct struct {
	Product     ExtractedProductInfo  `json:"product"`
	Supplements []ExtractedSupplement `json:"supplements"`
	Confidence  float64               `json:"confidence,omitempty"`
}

// ExtractedProductInfo describes the product itself.
type ExtractedProductInfo struct {
	Name                 string   `json:"name"`
	Brand                string   `json:"brand,omitempty"`
	Manufacturer         string   `json:"manufacturer,omitempty"`
	Category             string   `json:"category"`
	ServingsPerContainer string   `json:"servingsPerContainer,omitempty"`
	SuggestedUse         string   `json:"suggestedUse,omitempty"`
	Warnings             []string `json:"warnings"`
}

// ExtractedSupplement is one active ingredient read from the label.
type ExtractedSupplement struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Timing    string `json:"timing"`
	Form      string `json:"form"`
	Notes     string `json:"notes,omitempty"`
}

// ApplyDefaults fills optional fields with their documented defaults.
func (p *ExtractedProduct) ApplyDefaults() {
	if p.Product.Category == "" {
		p.Product.Category = DefaultExtractedCategory
	}
	if p.Product.Warnings == nil {
		p.Product.Warnings = []string{}
	}
	for i := range p.Supplements {
		s := &p.Supplements[i]
		if s.Frequency == "" {
			s.Frequency = DefaultExtractedFrequency
		}
		if s.Timing == "" {
			s.Timing = DefaultExtractedTiming
		}
		if s.Form == "" {
			s.Form = DefaultExtractedForm
		}
	}
}

// Validate enforces the required fields of an extraction.
func (p ExtractedProduct) Validate() error {
	var c fieldChecker
	if strings.TrimSpace(p.Product.Name) == "" {
		c.add("product.name", "Product name is required")
	}
	if p.Product.Category != "" {
		c.oneOf("product.category", p.Product.Category, ProductCategories)
	}
	if len(p.Supplements) == 0 {
		c.add("supplements", "At least one supplement must be extracted")
	}
	for i, s := range p.Supplements {
		if strings.TrimSpace(s.Name) == "" {
			c.add(fmt.Sprintf("supplements[%d].name", i), "Supplement name is required")
		}
		if strings.TrimSpace(s.Dosage) == "" {
			c.add(fmt.Sprintf("supplements[%d].dosage", i), "Dosage information is required")
		}
	}
	c.between("confidence", p.Confidence, 0, 100)
	return c.err()
}

// ExtractionReview is the outcome of ValidateExtractedData.
type ExtractionReview struct {
	IsValid     bool     `json:"isValid"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ValidateExtractedData flags the parts of an extraction a person should
// double-check before saving it. Any warning makes the review invalid.
func ValidateExtractedData(p ExtractedProduct) ExtractionReview {
	review := ExtractionReview{Warnings: []string{}, Suggestions: []string{}}
	if p.Product.Name == "" {
		review.Warnings = append(review.Warnings, "Product name not clearly identified")
	}
	if len(p.Supplements) == 0 {
		review.Warnings = append(review.Warnings, "No supplements extracted from label")
	}
	for i, s := range p.Supplements {
		n := i + 1
		if s.Name == "" {
			review.Warnings = append(review.Warnings, fmt.Sprintf("Supplement %d: Name not identified", n))
		}
		if s.Dosage == "" {
			review.Warnings = append(review.Warnings, fmt.Sprintf("Supplement %d: Dosage not found", n))
		}
		if s.Dosage != "" && !strings.ContainsFunc(s.Dosage, unicode.IsDigit) {
			review.Suggestions = append(review.Suggestions, fmt.Sprintf("Supplement %d: Dosage format may need verification", n))
		}
	}
	if p.Confidence < LowConfidenceThreshold {
		review.Warnings = append(review.Warnings, "Low confidence in extraction - please verify manually")
	}
	review.IsValid = len(review.Warnings) == 0
	return review
}
