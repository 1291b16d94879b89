package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"atlas/internal/infra/persistence/memory"
	"atlas/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type failingKV struct {
	*memory.Store
	failGet, failSet, failRemove, failClear bool
}

var errBackend = errors.New("backend down")

func (f *failingKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.failGet {
		return nil, false, errBackend
	}
	return f.Store.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errBackend
	}
	return f.Store.Set(ctx, key, value)
}

func (f *failingKV) Remove(ctx context.Context, key string) error {
	if f.failRemove {
		return errBackend
	}
	return f.Store.Remove(ctx, key)
}

func (f *failingKV) Clear(ctx context.Context) error {
	if f.failClear {
		return errBackend
	}
	return f.Store.Clear(ctx)
}

func newTestStorage() (*Storage, *failingKV) {
	kv := &failingKV{Store: memory.NewStore()}
	seq := 0
	s := New(kv,
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(prefix string, _ time.Time) string {
			seq++
			return fmt.Sprintf("%s_%d", prefix, seq)
		}),
	)
	return s, kv
}

type recorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *recorder) listen(c domain.Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}

func TestGetMissingAndCorruptPayloads(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()

	var out map[string]any
	if ok, err := s.Get(ctx, "missing", &out); ok || err != nil {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	_ = kv.Store.Set(ctx, "broken", []byte("{not json"))
	if ok, err := s.Get(ctx, "broken", &out); ok || err != nil {
		t.Fatalf("expected corrupt payload treated as absent, ok=%v err=%v", ok, err)
	}
	kv.failGet = true
	if _, err := s.Get(ctx, "broken", &out); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestMutationsNotifyInOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	var order []string
	s.Subscribe(func(domain.Change) { order = append(order, "first") })
	s.Subscribe(func(domain.Change) { order = append(order, "second") })
	rec := &recorder{}
	s.Subscribe(rec.listen)

	if err := s.Set(ctx, "k", map[string]int{"a": 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	if len(order) != 6 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("unexpected delivery order %v", order)
	}
	want := []domain.ChangeAction{domain.ChangeSet, domain.ChangeRemove, domain.ChangeClear}
	for i, c := range rec.changes {
		if c.Action != want[i] {
			t.Fatalf("change %d = %s, want %s", i, c.Action, want[i])
		}
		if !c.At.Equal(fixedNow) {
			t.Fatalf("change %d timestamp %v", i, c.At)
		}
	}
	if rec.changes[0].Key != "k" || rec.changes[2].Key != "" {
		t.Fatalf("unexpected keys %+v", rec.changes)
	}
}

func TestFailedWritesDoNotNotify(t *testing.T) {
	ctx := context.Background()
	s, kv := newTestStorage()
	rec := &recorder{}
	s.Subscribe(rec.listen)

	kv.failSet, kv.failRemove, kv.failClear = true, true, true
	if err := s.Set(ctx, "k", 1); !errors.Is(err, errBackend) {
		t.Fatalf("expected set error, got %v", err)
	}
	if err := s.Remove(ctx, "k"); !errors.Is(err, errBackend) {
		t.Fatalf("expected remove error, got %v", err)
	}
	if err := s.Clear(ctx); !errors.Is(err, errBackend) {
		t.Fatalf("expected clear error, got %v", err)
	}
	if _, err := s.Supplements().Add(ctx, domain.NewSupplement{Name: "Zinc"}); !errors.Is(err, errBackend) {
		t.Fatalf("expected add error, got %v", err)
	}
	if rec.count() != 0 {
		t.Fatalf("expected no notifications, got %d", rec.count())
	}
	if err := s.Set(ctx, "k", make(chan int)); err == nil {
		t.Fatalf("expected encode error")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	a, b := &recorder{}, &recorder{}
	unsubA := s.Subscribe(a.listen)
	s.Subscribe(b.listen)
	unsubA()
	unsubA()
	if s.Listeners() != 1 {
		t.Fatalf("expected 1 listener, got %d", s.Listeners())
	}
	if err := s.Set(ctx, "k", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if a.count() != 0 || b.count() != 1 {
		t.Fatalf("unexpected deliveries a=%d b=%d", a.count(), b.count())
	}
}

func TestListenerPanicDoesNotStopDelivery(t *testing.T) {
	s, _ := newTestStorage()
	rec := &recorder{}
	s.Subscribe(func(domain.Change) { panic("boom") })
	s.Subscribe(rec.listen)
	if err := s.Set(context.Background(), "k", 1); err != nil {
		t.Fatalf("set: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("expected delivery after panicking listener")
	}
}

func TestListenerMayWriteWithoutDeadlock(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage()
	var once sync.Once
	s.Subscribe(func(c domain.Change) {
		once.Do(func() {
			if err := s.Set(ctx, "echo", c.Key); err != nil {
				t.Errorf("nested set: %v", err)
			}
		})
	})
	done := make(chan struct{})
	go func() {
		_ = s.Set(ctx, "k", 1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("nested write deadlocked")
	}
	var echoed string
	if ok, _ := s.Get(ctx, "echo", &echoed); !ok || echoed != "k" {
		t.Fatalf("expected echoed key, got %q", echoed)
	}
}

func TestNewIDFormat(t *testing.T) {
	id := NewID(PrefixSupplement, fixedNow)
	pattern := regexp.MustCompile(`^sup_1709294400000_[0-9a-z]{9}$`)
	if !pattern.MatchString(id) {
		t.Fatalf("unexpected id %q", id)
	}
	if NewID(PrefixProduct, fixedNow) == NewID(PrefixProduct, fixedNow) {
		t.Fatalf("expected unique ids")
	}
}

func TestKVAccessor(t *testing.T) {
	kv := memory.NewStore()
	if New(kv).KV() != kv {
		t.Fatalf("expected underlying store")
	}
}
