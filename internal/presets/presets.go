// Package presets ships demo stacks that replace the current data in one step.
package presets

import (
	"context"
	"fmt"

	"atlas/pkg/domain"
)

// Preset is a named profile with its supplements.
type Preset struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Profile     domain.UserProfile     `json:"profile"`
	Supplements []domain.NewSupplement `json:"supplements"`
}

func daily(name, dosage, timing string) domain.NewSupplement {
	return domain.NewSupplement{Name: name, Dosage: dosage, Frequency: "Daily", Timing: timing}
}

var all = []Preset{
	{
		Name:        "Fitness Enthusiast",
		Description: "Active person focused on muscle building and performance optimization",
		Profile: domain.UserProfile{
			Name:        "Alex Johnson",
			Age:         "28",
			Gender:      "Male",
			Weight:      "175",
			HealthGoals: "Build lean muscle mass, improve workout performance, enhance recovery time, increase strength and endurance",
		},
		Supplements: []domain.NewSupplement{
			daily("Whey Protein Isolate", "30g", "Post-workout"),
			daily("Creatine Monohydrate", "5g", "Pre or post-workout"),
			daily("Beta-Alanine", "3g", "Pre-workout"),
			daily("Citrulline Malate", "6g", "30 min before workout"),
			daily("Vitamin D3", "4000 IU", "With breakfast"),
			daily("Omega-3 Fish Oil", "2g EPA/DHA", "With dinner"),
			daily("Magnesium Glycinate", "400mg", "Before bed"),
		},
	},
	{
		Name:        "General Wellness",
		Description: "Balanced approach for everyday health, energy, and immune support",
		Profile: domain.UserProfile{
			Name:        "Sarah Chen",
			Age:         "35",
			Gender:      "Female",
			Weight:      "140",
			HealthGoals: "Increase daily energy levels, strengthen immune system, improve sleep quality, reduce stress, maintain overall health",
		},
		Supplements: []domain.NewSupplement{
			daily("High-Quality Multivitamin", "1 tablet", "With breakfast"),
			daily("Vitamin D3 + K2", "2000 IU + 100mcg", "With breakfast"),
			daily("Omega-3 Fish Oil", "1000mg EPA/DHA", "With dinner"),
			daily("Probiotics", "50 billion CFU", "With breakfast"),
			daily("Ashwagandha", "300mg", "Evening with food"),
			daily("Magnesium Bisglycinate", "200mg", "Before bed"),
			daily("B-Complex", "1 capsule", "Morning with breakfast"),
		},
	},
	{
		Name:        "Healthy Aging",
		Description: "Comprehensive support for bone health, cognitive function, and cardiovascular wellness",
		Profile: domain.UserProfile{
			Name:               "Robert Davis",
			Age:                "58",
			Gender:             "Male",
			Weight:             "180",
			HealthGoals:        "Maintain strong bones and joints, support heart health, preserve cognitive function, manage cholesterol levels naturally",
			MedicalConditions:  "High cholesterol, mild joint stiffness",
			CurrentMedications: "Atorvastatin 20mg daily",
		},
		Supplements: []domain.NewSupplement{
			daily("Calcium Citrate + Vitamin D3", "600mg + 1000 IU", "With dinner"),
			daily("Coenzyme Q10 (Ubiquinol)", "200mg", "With breakfast"),
			daily("High-EPA Fish Oil", "2000mg EPA/DHA", "With lunch"),
			daily("Turmeric + Black Pepper", "500mg + 5mg", "With food"),
			daily("Glucosamine + Chondroitin", "1500mg + 1200mg", "With breakfast"),
			daily("Magnesium Threonate", "144mg", "Before bed"),
			daily("Lion's Mane Mushroom", "500mg", "Morning"),
			daily("Red Yeast Rice", "600mg", "With dinner"),
		},
	},
}

// List returns a copy of the presets in display order.
func List() []Preset {
	out := make([]Preset, len(all))
	for i, p := range all {
		p.Supplements = append([]domain.NewSupplement(nil), p.Supplements...)
		out[i] = p
	}
	return out
}

// Target is the part of the service a preset load needs.
type Target interface {
	ClearStorage(ctx context.Context) error
	SetProfile(ctx context.Context, profile domain.UserProfile) error
	ClearAnalysis(ctx context.Context) error
	AddSupplement(ctx context.Context, in domain.NewSupplement) (domain.Supplement, domain.Result, error)
}

// Load replaces all data with preset index: storage is cleared, the profile
// set, the analysis dropped and every supplement added in order.
func Load(ctx context.Context, target Target, index int) (Preset, error) {
	if index < 0 || index >= len(all) {
		return Preset{}, fmt.Errorf("preset %d out of range [0,%d)", index, len(all))
	}
	p := List()[index]
	if err := target.ClearStorage(ctx); err != nil {
		return Preset{}, fmt.Errorf("load preset %s: %w", p.Name, err)
	}
	if err := target.SetProfile(ctx, p.Profile); err != nil {
		return Preset{}, fmt.Errorf("load preset %s: %w", p.Name, err)
	}
	if err := target.ClearAnalysis(ctx); err != nil {
		return Preset{}, fmt.Errorf("load preset %s: %w", p.Name, err)
	}
	for _, s := range p.Supplements {
		if _, _, err := target.AddSupplement(ctx, s); err != nil {
			return Preset{}, fmt.Errorf("load preset %s: add %s: %w", p.Name, s.Name, err)
		}
	}
	return p, nil
}
