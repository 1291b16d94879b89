package presets

import (
	"context"
	"errors"
	"testing"

	"atlas/internal/core"
	"atlas/pkg/domain"
)

func TestListIsACopy(t *testing.T) {
	list := List()
	if len(list) != 3 {
		t.Fatalf("expected 3 presets, got %d", len(list))
	}
	names := []string{"Fitness Enthusiast", "General Wellness", "Healthy Aging"}
	counts := []int{7, 7, 8}
	for i, p := range list {
		if p.Name != names[i] || len(p.Supplements) != counts[i] {
			t.Fatalf("preset %d: unexpected %s with %d supplements", i, p.Name, len(p.Supplements))
		}
	}
	list[0].Supplements[0].Name = "mutated"
	if List()[0].Supplements[0].Name != "Whey Protein Isolate" {
		t.Fatalf("List must not expose the package data")
	}
}

func TestLoadReplacesData(t *testing.T) {
	ctx := context.Background()
	svc := core.NewInMemoryService()
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Close()
	if _, _, err := svc.AddSupplement(ctx, domain.NewSupplement{Name: "Iron", Dosage: "18mg", Frequency: "Daily"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := Load(ctx, svc, 2)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	state := svc.State()
	if state.Profile.Name != "Robert Davis" || state.Profile.CurrentMedications != "Atorvastatin 20mg daily" {
		t.Fatalf("unexpected profile %+v", state.Profile)
	}
	if len(state.Supplements) != len(p.Supplements) {
		t.Fatalf("expected %d supplements, got %d", len(p.Supplements), len(state.Supplements))
	}
	for i, s := range state.Supplements {
		if s.Name == "Iron" {
			t.Fatalf("previous data must be cleared")
		}
		if s.Name != p.Supplements[i].Name || s.Frequency != "Daily" {
			t.Fatalf("supplement %d: unexpected %+v", i, s)
		}
	}
	if state.Analysis != nil {
		t.Fatalf("analysis must be cleared")
	}
}

type failingTarget struct {
	calls []string
}

func (f *failingTarget) ClearStorage(context.Context) error {
	f.calls = append(f.calls, "clear")
	return nil
}

func (f *failingTarget) SetProfile(context.Context, domain.UserProfile) error {
	f.calls = append(f.calls, "profile")
	return errors.New("disk full")
}

func (f *failingTarget) ClearAnalysis(context.Context) error {
	f.calls = append(f.calls, "analysis")
	return nil
}

func (f *failingTarget) AddSupplement(context.Context, domain.NewSupplement) (domain.Supplement, domain.Result, error) {
	f.calls = append(f.calls, "add")
	return domain.Supplement{}, domain.Result{}, nil
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	for _, idx := range []int{-1, 3} {
		if _, err := Load(ctx, &failingTarget{}, idx); err == nil {
			t.Fatalf("index %d: expected error", idx)
		}
	}
	target := &failingTarget{}
	_, err := Load(ctx, target, 0)
	if err == nil || err.Error() != "load preset Fitness Enthusiast: disk full" {
		t.Fatalf("unexpected error %v", err)
	}
	if len(target.calls) != 2 {
		t.Fatalf("load must stop at the first failure, calls %v", target.calls)
	}
}
