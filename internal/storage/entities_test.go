package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"atlas/pkg/domain"
)

func TestSupplementsCRUD(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	list, err := s.Supplements().List(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("expected empty non-nil list, got %v err=%v", list, err)
	}

	created, err := s.Supplements().Add(ctx, domain.NewSupplement{Name: "Vitamin D3", Dosage: "2000 IU", Frequency: "Daily"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if created.ID != "sup_1" || !created.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created supplement %+v", created)
	}
	if _, err := s.Supplements().Add(ctx, domain.NewSupplement{Name: "Magnesium", Dosage: "400mg", Frequency: "Daily"}); err != nil {
		t.Fatalf("add second: %v", err)
	}

	dosage := "5000 IU"
	updated, err := s.Supplements().Update(ctx, created.ID, domain.SupplementPatch{Dosage: &dosage})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Dosage != dosage || updated.Name != "Vitamin D3" {
		t.Fatalf("unexpected update %+v", updated)
	}

	_, err = s.Supplements().Update(ctx, "sup_missing", domain.SupplementPatch{Dosage: &dosage})
	var nf ErrNotFound
	if !errors.As(err, &nf) || err.Error() != "Supplement not found" {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := s.Supplements().Remove(ctx, created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Supplements().Remove(ctx, "sup_missing"); err != nil {
		t.Fatalf("remove missing should not fail: %v", err)
	}
	list, _ = s.Supplements().List(ctx)
	if len(list) != 1 || list[0].Name != "Magnesium" {
		t.Fatalf("unexpected list %+v", list)
	}
	// add, add, update, remove, remove-missing; the failed update is silent
	if rec.count() != 5 {
		t.Fatalf("expected 5 notifications, got %d", rec.count())
	}
}

func TestSupplementsNonArrayPayload(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()
	_ = kv.Store.Set(ctx, domain.KeySupplements, []byte(`{"oops":true}`))
	list, err := s.Supplements().List(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", list, err)
	}
	_ = kv.Store.Set(ctx, domain.KeySupplements, []byte(`null`))
	list, _ = s.Supplements().List(ctx)
	if list == nil {
		t.Fatalf("expected non-nil list for null payload")
	}
}

func TestSupplementsReplace(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()
	if err := s.Supplements().Replace(ctx, nil); err != nil {
		t.Fatalf("replace: %v", err)
	}
	raw, _, _ := kv.Get(ctx, domain.KeySupplements)
	if string(raw) != "[]" {
		t.Fatalf("expected empty array payload, got %s", raw)
	}
}

func TestProductsRemoveDetachesSupplements(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()

	prod, err := s.Products().Add(ctx, domain.NewProduct{Name: "Daily Multi", Brand: "Acme"})
	if err != nil {
		t.Fatalf("add product: %v", err)
	}
	if prod.ID != "prod_1" {
		t.Fatalf("unexpected product id %s", prod.ID)
	}
	linked, _ := s.Supplements().Add(ctx, domain.NewSupplement{Name: "Zinc", Dosage: "10mg", Frequency: "Daily", ProductID: prod.ID})
	other, _ := s.Supplements().Add(ctx, domain.NewSupplement{Name: "Iron", Dosage: "18mg", Frequency: "Daily", ProductID: "prod_other"})

	rec := &recorder{}
	s.Subscribe(rec.listen)
	if err := s.Products().Remove(ctx, prod.ID); err != nil {
		t.Fatalf("remove product: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("expected two notifications, got %d", rec.count())
	}
	if rec.changes[0].Key != domain.KeyProducts || rec.changes[1].Key != domain.KeySupplements {
		t.Fatalf("unexpected change order %+v", rec.changes)
	}

	products, _ := s.Products().List(ctx)
	if len(products) != 0 {
		t.Fatalf("expected product removed, got %+v", products)
	}
	supplements, _ := s.Supplements().List(ctx)
	if len(supplements) != 2 {
		t.Fatalf("supplements must survive product removal, got %+v", supplements)
	}
	for _, sup := range supplements {
		switch sup.ID {
		case linked.ID:
			if sup.ProductID != "" {
				t.Fatalf("expected linked supplement detached, got %+v", sup)
			}
		case other.ID:
			if sup.ProductID != "prod_other" {
				t.Fatalf("unrelated supplement changed: %+v", sup)
			}
		}
	}
}

func TestProductsUpdate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	prod, _ := s.Products().Add(ctx, domain.NewProduct{Name: "Multi"})
	uri := "labels/abc.jpg"
	updated, err := s.Products().Update(ctx, prod.ID, domain.ProductPatch{ImageURI: &uri})
	if err != nil || updated.ImageURI != uri {
		t.Fatalf("update: %+v err=%v", updated, err)
	}
	_, err = s.Products().Update(ctx, "nope", domain.ProductPatch{})
	if err == nil || err.Error() != "Product not found" {
		t.Fatalf("expected Product not found, got %v", err)
	}
	if err := s.Products().Replace(ctx, []domain.Product{}); err != nil {
		t.Fatalf("replace: %v", err)
	}
}

func TestProfileGetUpdateSet(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()
	_ = kv.Store.Set(ctx, domain.KeyProfile, []byte(`["not","an","object"]`))
	p, err := s.Profile().Get(ctx)
	if err != nil || p != (domain.UserProfile{}) {
		t.Fatalf("expected empty profile, got %+v err=%v", p, err)
	}

	if err := s.Profile().Set(ctx, domain.UserProfile{Name: "Ada", Age: "36"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	goals := "Energy"
	merged, err := s.Profile().Update(ctx, domain.ProfilePatch{HealthGoals: &goals})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if merged.Name != "Ada" || merged.Age != "36" || merged.HealthGoals != "Energy" {
		t.Fatalf("unexpected merge %+v", merged)
	}
	again, _ := s.Profile().Get(ctx)
	if again != merged {
		t.Fatalf("stored profile %+v differs from merge %+v", again, merged)
	}
}

func TestAnalysisSetGetClear(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()

	rec, err := s.Analysis().Get(ctx)
	if err != nil || rec.Analysis != nil || rec.LastAnalyzedAt != nil {
		t.Fatalf("expected empty record, got %+v err=%v", rec, err)
	}

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("x", 3600))
	report := &domain.SupplementAnalysis{Summary: domain.AnalysisSummary{OverallStatus: domain.StatusGood, IssueCount: 1}}
	if err := s.Analysis().Set(ctx, report, &at); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, _, _ := kv.Get(ctx, domain.KeyAnalysis)
	if want := `"lastAnalyzedAt":"2024-03-01T08:30:00Z"`; !strings.Contains(string(raw), want) {
		t.Fatalf("expected UTC ISO timestamp in %s", raw)
	}
	rec, _ = s.Analysis().Get(ctx)
	if rec.Analysis == nil || rec.Analysis.Summary.IssueCount != 1 || !rec.LastAnalyzedAt.Equal(at) {
		t.Fatalf("unexpected record %+v", rec)
	}

	if err := s.Analysis().Set(ctx, nil, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	rec, _ = s.Analysis().Get(ctx)
	if rec.Analysis != nil || rec.LastAnalyzedAt != nil {
		t.Fatalf("expected cleared record, got %+v", rec)
	}
}

func TestConcurrentAddsKeepEveryRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Supplements().Add(ctx, domain.NewSupplement{Name: "x", Dosage: "1", Frequency: "Daily"}); err != nil {
				t.Errorf("add: %v", err)
			}
		}()
	}
	wg.Wait()
	list, _ := s.Supplements().List(ctx)
	if len(list) != 20 {
		t.Fatalf("expected 20 supplements, got %d", len(list))
	}
}

func TestErrNotFoundWithoutEntity(t *testing.T) {
	if (ErrNotFound{}).Error() != "record not found" {
		t.Fatalf("unexpected message")
	}
}
