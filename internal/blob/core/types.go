// Package core holds the blob store contract shared by the facade and the
// infra drivers.
package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver names a blob backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local directory
	DriverS3         Driver = "s3"     // S3 or MinIO
	DriverMemory     Driver = "memory" // process memory
)

// PutOptions carries optional object attributes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions tunes PresignURL. Only GET is supported.
type SignedURLOptions struct {
	Method string
	Expiry time.Duration
}

// DefaultURLExpiry applies when SignedURLOptions.Expiry is zero.
const DefaultURLExpiry = 15 * time.Minute

// Info describes a stored object.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store persists label images and other binary attachments.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned for optional capabilities a driver lacks.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is returned when no object exists under a key.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob: already exists")
)

// ValidateKey rejects empty keys, absolute keys and keys that climb out of
// the store root.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return errors.New("blob: empty key")
	case key[0] == '/':
		return errors.New("blob: absolute key " + key)
	}
	sep := func(r rune) bool { return r == '/' || r == '\\' }
	for _, seg := range strings.FieldsFunc(key, sep) {
		if seg == ".." {
			return errors.New("blob: key escapes root " + key)
		}
	}
	return nil
}
