// Package blob is the entry point for binary attachments such as scanned
// label photos. It re-exports the store contract and opens the configured
// driver.
package blob

import (
	"context"
	"errors"
	"fmt"

	"atlas/internal/blob/core"
	"atlas/internal/infra/blob/fs"
	"atlas/internal/infra/blob/memory"
	"atlas/internal/infra/blob/s3"
)

type (
	Driver           = core.Driver
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
	Info             = core.Info
	Store            = core.Store
	S3Config         = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Config selects a driver. Root applies to fs, S3 to s3.
type Config struct {
	Driver Driver   `mapstructure:"driver"`
	Root   string   `mapstructure:"root"`
	S3     S3Config `mapstructure:"s3"`
}

// Open returns the store described by cfg. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.Root)
	case DriverMemory:
		return memory.New(), nil
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an empty in-process store.
func NewMemory() Store { return memory.New() }

// URL returns a link for key: a presigned URL when the driver supports one,
// otherwise the key itself.
func URL(ctx context.Context, store Store, key string) (string, error) {
	link, err := store.PresignURL(ctx, key, SignedURLOptions{})
	switch {
	case err == nil:
		return link, nil
	case errors.Is(err, ErrUnsupported):
		return key, nil
	default:
		return "", err
	}
}
