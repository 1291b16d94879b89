// Package storage layers JSON documents, per-entity helpers and change
// notification on top of a domain.KVStore.
//
// Every successful Set, Remove and Clear notifies subscribed listeners
// synchronously, in subscription order, once the write has landed. Failed
// writes return their error and notify nobody.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"atlas/pkg/domain"
)

// Listener receives storage change notifications.
type Listener func(domain.Change)

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for decode failures and listener panics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for createdAt stamps and change events.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides the record id generator.
func WithIDGenerator(gen func(prefix string, at time.Time) string) Option {
	return func(s *Storage) {
		if gen != nil {
			s.newID = gen
		}
	}
}

type subscription struct {
	id uint64
	fn Listener
}

// Storage is safe for concurrent use. Per-entity read-modify-write cycles are
// serialized so concurrent adds cannot drop each other's records.
type Storage struct {
	kv     domain.KVStore
	logger *zap.Logger
	now    func() time.Time
	newID  func(prefix string, at time.Time) string

	writeMu sync.Mutex

	listenMu  sync.Mutex
	listeners []subscription
	nextSub   uint64
}

// New wraps kv.
func New(kv domain.KVStore, opts ...Option) *Storage {
	s := &Storage{
		kv:     kv,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KV returns the underlying store.
func (s *Storage) KV() domain.KVStore { return s.kv }

// Get decodes the value under key into out. It reports false when the key is
// missing or its payload is not valid JSON for out; only backend failures are
// returned as errors.
func (s *Storage) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("storage get %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("discarding undecodable payload", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Set encodes v as JSON, stores it under key and notifies listeners.
func (s *Storage) Set(ctx context.Context, key string, v any) error {
	return s.mutate(func() ([]domain.Change, error) {
		c, err := s.set(ctx, key, v)
		if err != nil {
			return nil, err
		}
		return []domain.Change{c}, nil
	})
}

// Remove deletes key and notifies listeners.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.mutate(func() ([]domain.Change, error) {
		if err := s.kv.Remove(ctx, key); err != nil {
			return nil, fmt.Errorf("storage remove %s: %w", key, err)
		}
		return []domain.Change{{Key: key, Action: domain.ChangeRemove, At: s.now()}}, nil
	})
}

// Clear drops every key and notifies listeners once.
func (s *Storage) Clear(ctx context.Context) error {
	return s.mutate(func() ([]domain.Change, error) {
		if err := s.kv.Clear(ctx); err != nil {
			return nil, fmt.Errorf("storage clear: %w", err)
		}
		return []domain.Change{{Action: domain.ChangeClear, At: s.now()}}, nil
	})
}

// Subscribe registers a listener. The returned function unsubscribes it and
// is safe to call more than once.
func (s *Storage) Subscribe(fn Listener) (unsubscribe func()) {
	s.listenMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.listenMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenMu.Lock()
			defer s.listenMu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Listeners reports the number of active subscriptions.
func (s *Storage) Listeners() int {
	s.listenMu.Lock()
	defer s.listenMu.Unlock()
	return len(s.listeners)
}

func (s *Storage) set(ctx context.Context, key string, v any) (domain.Change, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return domain.Change{}, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return domain.Change{}, fmt.Errorf("storage set %s: %w", key, err)
	}
	return domain.Change{Key: key, Action: domain.ChangeSet, At: s.now()}, nil
}

// mutate runs fn under the write lock and then delivers the changes it
// produced. Changes that landed before a failure are still delivered.
func (s *Storage) mutate(fn func() ([]domain.Change, error)) error {
	s.writeMu.Lock()
	changes, err := fn()
	s.writeMu.Unlock()
	for _, c := range changes {
		s.notify(c)
	}
	return err
}

func (s *Storage) notify(c domain.Change) {
	s.listenMu.Lock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.listenMu.Unlock()
	for _, sub := range subs {
		s.deliver(sub.fn, c)
	}
}

func (s *Storage) deliver(fn Listener, c domain.Change) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("storage listener panicked", zap.String("key", c.Key), zap.Any("panic", r))
		}
	}()
	fn(c)
}
