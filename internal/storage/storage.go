// Package storage persists extracted records to a relational database.
//
// Backends register themselves under a kind ("sqlite", "postgres", "mssql")
// from init functions; the CLI selects one by flag. Each backend owns its
// SQL dialect but shares the same one-table schema: a row per record with
// the record body stored as JSON.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config selects and configures a sink backend.
type Config struct {
	Kind string
	DSN  string
}

// PageRecord is one extracted record ready for persistence.
type PageRecord struct {
	// SourceURL is the base URL of the run the record came from.
	SourceURL string

	// FetchedAt is when the run that produced the record completed.
	FetchedAt time.Time

	// Data is the JSON-encoded record, field order preserved.
	Data string
}

// Sink persists extracted records.
type Sink interface {
	// EnsureSchema creates the records table when it does not exist yet.
	// Safe to call on every run.
	EnsureSchema(ctx context.Context) error

	// InsertRecords appends records and returns the number of rows written.
	InsertRecords(ctx context.Context, recs []PageRecord) (int64, error)

	// Close releases backend resources. Treat as "call once".
	Close()
}

type factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a sink backend under a kind. Backends call Register
// from init; duplicate registration panics to fail fast on ambiguous wiring.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Sink using the registered backend factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}
