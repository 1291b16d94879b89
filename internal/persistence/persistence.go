// Package persistence selects a key-value backend for the tracker state.
package persistence

import (
	"context"
	"fmt"

	"atlas/internal/infra/persistence/memory"
	"atlas/internal/infra/persistence/postgres"
	"atlas/internal/infra/persistence/sqlite"
	"atlas/pkg/domain"
)

// Driver identifies a concrete persistent storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver      Driver `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Open constructs the configured backend. An empty driver selects sqlite.
func Open(ctx context.Context, cfg Config) (domain.KVStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
