// Package domain defines the persisted supplement tracker records, the AI
// report and label extraction shapes, and the rule evaluation primitives used
// by atlas.
package domain

import (
	"strings"
	"time"
)

// Storage keys. The values match the keys written by the mobile client so a
// store can be shared with it.
const (
	KeySupplements = "@atlas_supplements"
	KeyProducts    = "@atlas_products"
	KeyProfile     = "@atlas_profile"
	KeyAnalysis    = "@atlas_analysis"
)

// Keys lists every key owned by the tracker.
func Keys() []string {
	return []string{KeySupplements, KeyProducts, KeyProfile, KeyAnalysis}
}

// EntityType identifies the record kind named in rule violations and mutations.
type EntityType string

// Supported entity types.
const (
	EntitySupplement EntityType = "supplement"
	EntityProduct    EntityType = "product"
	EntityProfile    EntityType = "profile"
	EntityAnalysis   EntityType = "analysis"
)

// Supplement is a single entry in the user's stack.
type Supplement struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	Timing    string    `json:"timing,omitempty"`
	ProductID string    `json:"productId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewSupplement carries the caller supplied fields of a supplement.
type NewSupplement struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Timing    string `json:"timing,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

// SupplementPatch is a partial update. Nil fields are left untouched; an
// empty ProductID detaches the supplement from its product.
type SupplementPatch struct {
	Name      *string `json:"name,omitempty"`
	Dosage    *string `json:"dosage,omitempty"`
	Frequency *string `json:"frequency,omitempty"`
	Timing    *string `json:"timing,omitempty"`
	ProductID *string `json:"productId,omitempty"`
}

// Apply returns a copy of s with the patch merged in. ID and CreatedAt never change.
func (p SupplementPatch) Apply(s Supplement) Supplement {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Dosage != nil {
		s.Dosage = *p.Dosage
	}
	if p.Frequency != nil {
		s.Frequency = *p.Frequency
	}
	if p.Timing != nil {
		s.Timing = *p.Timing
	}
	if p.ProductID != nil {
		s.ProductID = *p.ProductID
	}
	return s
}

// Product is a physical bottle or package a supplement can be linked to.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand,omitempty"`
	Timing    string    `json:"timing,omitempty"`
	ImageURI  string    `json:"imageUri,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewProduct carries the caller supplied fields of a product.
type NewProduct struct {
	Name     string `json:"name"`
	Brand    string `json:"brand,omitempty"`
	Timing   string `json:"timing,omitempty"`
	ImageURI string `json:"imageUri,omitempty"`
}

// ProductPatch is a partial product update.
type ProductPatch struct {
	Name     *string `json:"name,omitempty"`
	Brand    *string `json:"brand,omitempty"`
	Timing   *string `json:"timing,omitempty"`
	ImageURI *string `json:"imageUri,omitempty"`
}

// Apply returns a copy of p with the patch merged in.
func (pp ProductPatch) Apply(p Product) Product {
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Brand != nil {
		p.Brand = *pp.Brand
	}
	if pp.Timing != nil {
		p.Timing = *pp.Timing
	}
	if pp.ImageURI != nil {
		p.ImageURI = *pp.ImageURI
	}
	return p
}

// UserProfile holds free-text context used to personalize analysis.
type UserProfile struct {
	Name               string `json:"name,omitempty"`
	Age                string `json:"age,omitempty"`
	Gender             string `json:"gender,omitempty"`
	Weight             string `json:"weight,omitempty"`
	HealthGoals        string `json:"healthGoals,omitempty"`
	MedicalConditions  string `json:"medicalConditions,omitempty"`
	CurrentMedications string `json:"currentMedications,omitempty"`
	Allergies          string `json:"allergies,omitempty"`
}

// IsSparse reports whether the profile lacks the fields that matter most for
// personalization (name, age and health goals).
func (p UserProfile) IsSparse() bool {
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Age) == "" &&
		strings.TrimSpace(p.HealthGoals) == ""
}

// ProfilePatch is a shallow profile merge.
type ProfilePatch struct {
	Name               *string `json:"name,omitempty"`
	Age                *string `json:"age,omitempty"`
	Gender             *string `json:"gender,omitempty"`
	Weight             *string `json:"weight,omitempty"`
	HealthGoals        *string `json:"healthGoals,omitempty"`
	MedicalConditions  *string `json:"medicalConditions,omitempty"`
	CurrentMedications *string `json:"currentMedications,omitempty"`
	Allergies          *string `json:"allergies,omitempty"`
}

// Merge returns p with every non-nil patch field applied.
func (p UserProfile) Merge(patch ProfilePatch) UserProfile {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Name, patch.Name)
	set(&p.Age, patch.Age)
	set(&p.Gender, patch.Gender)
	set(&p.Weight, patch.Weight)
	set(&p.HealthGoals, patch.HealthGoals)
	set(&p.MedicalConditions, patch.MedicalConditions)
	set(&p.CurrentMedications, patch.CurrentMedications)
	set(&p.Allergies, patch.Allergies)
	return p
}

// AnalysisRecord is the persisted analysis slot. Both fields are null when no
// analysis has been stored.
type AnalysisRecord struct {
	Analysis       *SupplementAnalysis `json:"analysis"`
	LastAnalyzedAt *time.Time          `json:"lastAnalyzedAt"`
}

// SupplementsForProduct returns the supplements linked to productID.
func SupplementsForProduct(supplements []Supplement, productID string) []Supplement {
	var out []Supplement
	for _, s := range supplements {
		if s.ProductID == productID {
			out = append(out, s)
		}
	}
	return out
}
