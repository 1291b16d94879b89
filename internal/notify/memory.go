package notify

import (
	"context"
	"slices"
	"sync"
)

// MemoryBus is an in-process Bus. It lets several relays in one process, or
// tests, exchange changes without Redis.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

// NewMemoryBus returns an empty bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[string][]*memorySubscription)}
}

// Publish delivers payload to every current subscriber of channel, blocking
// until each accepts it or ctx ends.
func (b *MemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	subs := slices.Clone(b.subs[channel])
	b.mu.Unlock()
	for _, s := range subs {
		select {
		case s.ch <- slices.Clone(payload):
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, channel string) (Subscription, error) {
	s := &memorySubscription{ch: make(chan []byte, 16), done: make(chan struct{})}
	s.close = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs[channel] = slices.DeleteFunc(b.subs[channel], func(x *memorySubscription) bool { return x == s })
		close(s.done)
	}
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], s)
	b.mu.Unlock()
	return s, nil
}

// Subscribers reports the number of live subscriptions on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

type memorySubscription struct {
	ch    chan []byte
	done  chan struct{}
	once  sync.Once
	close func()
}

func (s *memorySubscription) Messages() <-chan []byte { return s.ch }

func (s *memorySubscription) Close() error {
	s.once.Do(s.close)
	return nil
}
