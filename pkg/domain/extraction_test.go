package domain

import (
	"errors"
	"testing"
)

func TestExtractedProductApplyDefaults(t *testing.T) {
	p := ExtractedProduct{
		Product:     ExtractedProductInfo{Name: "Daily Multi"},
		Supplements: []ExtractedSupplement{{Name: "Vitamin C", Dosage: "500mg"}, {Name: "Zinc", Dosage: "10mg", Frequency: "Twice daily"}},
	}
	p.ApplyDefaults()
	if p.Product.Category != "other" || p.Product.Warnings == nil {
		t.Fatalf("product defaults not applied: %+v", p.Product)
	}
	first := p.Supplements[0]
	if first.Frequency != "Daily" || first.Timing != "As directed" || first.Form != "Tablet/Capsule" {
		t.Fatalf("supplement defaults not applied: %+v", first)
	}
	if p.Supplements[1].Frequency != "Twice daily" {
		t.Fatalf("explicit frequency overwritten: %+v", p.Supplements[1])
	}
}

func TestExtractedProductValidate(t *testing.T) {
	ok := ExtractedProduct{
		Product:     ExtractedProductInfo{Name: "Daily Multi", Category: "vitamins"},
		Supplements: []ExtractedSupplement{{Name: "Vitamin C", Dosage: "500mg"}},
		Confidence:  90,
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid extraction, got %v", err)
	}

	bad := ExtractedProduct{
		Product:     ExtractedProductInfo{Category: "candy"},
		Supplements: []ExtractedSupplement{{Name: "", Dosage: " "}},
		Confidence:  140,
	}
	var schemaErr *SchemaError
	if err := bad.Validate(); !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Fields) != 5 {
		t.Fatalf("expected 5 field errors, got %+v", schemaErr.Fields)
	}

	empty := ExtractedProduct{Product: ExtractedProductInfo{Name: "x"}}
	if err := empty.Validate(); err == nil {
		t.Fatalf("expected error for empty supplements")
	}
}

func TestValidateExtractedData(t *testing.T) {
	cases := []struct {
		name        string
		in          ExtractedProduct
		valid       bool
		warnings    int
		suggestions int
	}{
		{
			name: "clean",
			in: ExtractedProduct{
				Product:     ExtractedProductInfo{Name: "Multi"},
				Supplements: []ExtractedSupplement{{Name: "Vitamin C", Dosage: "500mg"}},
				Confidence:  95,
			},
			valid: true,
		},
		{
			name: "dosage without digits",
			in: ExtractedProduct{
				Product:     ExtractedProductInfo{Name: "Multi"},
				Supplements: []ExtractedSupplement{{Name: "Herbal blend", Dosage: "proprietary"}},
				Confidence:  85,
			},
			valid:       true,
			suggestions: 1,
		},
		{
			name: "missing fields and low confidence",
			in: ExtractedProduct{
				Supplements: []ExtractedSupplement{{Name: "", Dosage: ""}},
				Confidence:  40,
			},
			warnings: 4,
		},
		{
			name:     "nothing extracted",
			in:       ExtractedProduct{Product: ExtractedProductInfo{Name: "Multi"}, Confidence: 99},
			warnings: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			review := ValidateExtractedData(tc.in)
			if review.IsValid != tc.valid {
				t.Fatalf("IsValid = %v, want %v (%+v)", review.IsValid, tc.valid, review)
			}
			if len(review.Warnings) != tc.warnings {
				t.Fatalf("warnings = %v, want %d", review.Warnings, tc.warnings)
			}
			if len(review.Suggestions) != tc.suggestions {
				t.Fatalf("suggestions = %v, want %d", review.Suggestions, tc.suggestions)
			}
		})
	}
}

func TestValidateExtractedDataMessages(t *testing.T) {
	review := ValidateExtractedData(ExtractedProduct{
		Product:     ExtractedProductInfo{Name: "Multi"},
		Supplements: []ExtractedSupplement{{Name: "A", Dosage: "10mg"}, {Name: "B"}},
		Confidence:  79,
	})
	want := []string{"Supplement 2: Dosage not found", "Low confidence in extraction - please verify manually"}
	if len(review.Warnings) != len(want) {
		t.Fatalf("unexpected warnings %v", review.Warnings)
	}
	for i := range want {
		if review.Warnings[i] != want[i] {
			t.Fatalf("warning %d = %q, want %q", i, review.Warnings[i], want[i])
		}
	}
}
