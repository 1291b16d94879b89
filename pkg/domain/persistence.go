package domain

import (
	"context"
	"time"
)

// KVStore is the durable key-value contract every storage backend satisfies.
// Values are opaque JSON documents.
type KVStore interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes a key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
	// Clear drops every key.
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// ChangeAction identifies the storage operation that produced a Change.
type ChangeAction string

// Storage change actions.
const (
	ChangeSet    ChangeAction = "set"
	ChangeRemove ChangeAction = "remove"
	ChangeClear  ChangeAction = "clear"
)

// Change is broadcast to storage listeners after every successful write.
// Key is empty for ChangeClear.
type Change struct {
	Key    string       `json:"key,omitempty"`
	Action ChangeAction `json:"action"`
	At     time.Time    `json:"at"`
}
