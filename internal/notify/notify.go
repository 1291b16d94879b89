// Package notify shares storage changes between atlas processes that point
// at the same backend. Local changes are published on a bus channel; changes
// published by other processes trigger a state refresh.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"atlas/internal/storage"
	"atlas/pkg/domain"
)

// DefaultChannel is used when Config.Channel is empty.
const DefaultChannel = "atlas:changes"

// Config enables the relay when URL is set.
type Config struct {
	URL     string `mapstructure:"url"`
	Channel string `mapstructure:"channel"`
}

// Enabled reports whether a bus is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// Subscription delivers raw payloads until closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Bus is a fire-and-forget pub/sub transport.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Message is the wire form of a relayed change.
type Message struct {
	Origin string        `json:"origin"`
	Change domain.Change `json:"change"`
}

// Refresher reloads state from storage.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the relay logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithChannel overrides DefaultChannel.
func WithChannel(channel string) Option {
	return func(r *Relay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithOrigin fixes the origin id stamped on outgoing messages.
func WithOrigin(origin string) Option {
	return func(r *Relay) {
		if origin != "" {
			r.origin = origin
		}
	}
}

// Relay connects one process's storage to the bus.
type Relay struct {
	bus     Bus
	store   *storage.Storage
	target  Refresher
	channel string
	origin  string
	logger  *zap.Logger
	buffer  int
}

// NewRelay builds a relay that publishes changes from store and refreshes
// target when another process publishes.
func NewRelay(bus Bus, store *storage.Storage, target Refresher, opts ...Option) *Relay {
	r := &Relay{
		bus:     bus,
		store:   store,
		target:  target,
		channel: DefaultChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
		buffer:  64,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Origin returns the id this relay stamps on outgoing messages.
func (r *Relay) Origin() string { return r.origin }

// Run relays until ctx is cancelled. It returns nil on cancellation.
func (r *Relay) Run(ctx context.Context) error {
	sub, err := r.bus.Subscribe(ctx, r.channel)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	defer func() { _ = sub.Close() }()

	// Storage listeners run inside the write path, so changes are handed to
	// the publisher goroutine through a buffer and dropped when it is full.
	outbox := make(chan domain.Change, r.buffer)
	unsubscribe := r.store.Subscribe(func(c domain.Change) {
		select {
		case outbox <- c:
		default:
			r.logger.Warn("change relay buffer full, dropping change", zap.String("key", c.Key))
		}
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.publishLoop(gctx, outbox) })
	g.Go(func() error { return r.receiveLoop(gctx, sub.Messages()) })
	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (r *Relay) publishLoop(ctx context.Context, outbox <-chan domain.Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-outbox:
			payload, err := json.Marshal(Message{Origin: r.origin, Change: c})
			if err != nil {
				return err
			}
			if err := r.bus.Publish(ctx, r.channel, payload); err != nil {
				r.logger.Warn("publish change failed", zap.String("key", c.Key), zap.Error(err))
			}
		}
	}
}

func (r *Relay) receiveLoop(ctx context.Context, msgs <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				return errors.New("notify: subscription closed")
			}
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				r.logger.Warn("ignoring malformed change message", zap.Error(err))
				continue
			}
			if msg.Origin == r.origin {
				continue
			}
			r.logger.Debug("remote change", zap.String("origin", msg.Origin), zap.String("key", msg.Change.Key))
			if err := r.target.Refresh(ctx); err != nil {
				r.logger.Warn("refresh after remote change failed", zap.Error(err))
			}
		}
	}
}
