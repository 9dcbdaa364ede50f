// Package storage holds the macro.Repository implementations: a JSON file
// (the default), SQLite, and an in-memory map.
package storage

import (
	"fmt"

	"github.com/v0xg/webmacro/internal/macro"
	"go.uber.org/zap"
)

// Drivers accepted by Open
const (
	DriverJSON   = "json"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is a repository that may hold resources
type Store interface {
	macro.Repository
	Close() error
}

type options struct {
	logger *zap.Logger
}

// Option configures a store
type Option func(*options)

// WithLogger sets a custom logger for the store
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates the store for the given driver
func Open(driver, path string, opts ...Option) (Store, error) {
	switch driver {
	case DriverJSON, "":
		return NewJSONStore(path, opts...)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: json, sqlite, memory)", driver)
	}
}

// Close is a no-op; the file is not held open between calls
func (s *JSONStore) Close() error { return nil }

func (s *MemoryStore) Close() error { return nil }
