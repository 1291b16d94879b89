package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"atlas/internal/infra/persistence/memory"
	"atlas/internal/storage"
	"atlas/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var errBackend = errors.New("backend down")

type flakyKV struct {
	*memory.Store
	mu      sync.Mutex
	failGet bool
	failSet bool
}

func (f *flakyKV) setFailures(get, set bool) {
	f.mu.Lock()
	f.failGet, f.failSet = get, set
	f.mu.Unlock()
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, false, errBackend
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return errBackend
	}
	return f.Store.Set(ctx, key, value)
}

type stubAnalyzer struct {
	report *domain.SupplementAnalysis
	err    error
	calls  int
	got    []domain.Supplement
}

func (a *stubAnalyzer) AnalyzeSupplements(_ context.Context, supplements []domain.Supplement, _ domain.UserProfile) (*domain.SupplementAnalysis, error) {
	a.calls++
	a.got = supplements
	if a.err != nil {
		return nil, a.err
	}
	return a.report, nil
}

func sampleReport(issues int) *domain.SupplementAnalysis {
	return &domain.SupplementAnalysis{
		Summary: domain.AnalysisSummary{
			OverallStatus: domain.StatusGood,
			IssueCount:    issues,
		},
		Metadata: domain.AnalysisMetadata{AnalysisVersion: domain.AnalysisVersion},
	}
}

// newTestService wires a started service over a flaky in-memory store with a
// fixed clock and sequential ids.
func newTestService(t *testing.T, opts ...Option) (*Service, *flakyKV) {
	t.Helper()
	kv := &flakyKV{Store: memory.NewStore()}
	seq := 0
	store := storage.New(kv,
		storage.WithClock(func() time.Time { return fixedNow }),
		storage.WithIDGenerator(func(prefix string, _ time.Time) string {
			seq++
			return fmt.Sprintf("%s_%d", prefix, seq)
		}),
	)
	opts = append([]Option{WithClock(ClockFunc(func() time.Time { return fixedNow }))}, opts...)
	svc := NewService(store, opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, kv
}

func mustAddSupplement(t *testing.T, svc *Service, name string) domain.Supplement {
	t.Helper()
	sup, _, err := svc.AddSupplement(context.Background(), domain.NewSupplement{Name: name, Dosage: "1000mg", Frequency: "Daily"})
	if err != nil {
		t.Fatalf("add supplement %s: %v", name, err)
	}
	return sup
}
