// Package export serializes result sets to files. Formats self-register
// under a name; whether a format is available is decided once at startup by
// what got compiled in, not discovered by failures deep in a write path.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"webextract/internal/scrape"
)

// ErrNoRecords is returned when an export is asked to serialize an empty
// result set. Callers treat it as "nothing to save", not a failure.
var ErrNoRecords = errors.New("no records to export")

// WriterFunc serializes records to w in one format.
type WriterFunc func(w io.Writer, records scrape.ResultSet) error

var (
	mu       sync.RWMutex
	registry = map[string]WriterFunc{}
)

// Register makes a format available under name. Formats register from init
// functions; registering the same name twice panics to fail fast on
// ambiguous wiring.
func Register(name string, fn WriterFunc) {
	mu.Lock()
	defer mu.Unlock()

	if name == "" {
		panic("export: Register called with empty format name")
	}
	if fn == nil {
		panic("export: Register called with nil writer")
	}
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("export: writer already registered for format %q", name))
	}
	registry[name] = fn
}

// Available reports whether a writer is registered for format.
func Available(format string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[format]
	return ok
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// WriteFile serializes records to path in the given format.
//
// The file is written to a temp sibling and renamed into place, so a failed
// export never leaves a truncated output file behind. An empty result set
// returns ErrNoRecords without touching the filesystem.
func WriteFile(path, format string, records scrape.ResultSet) error {
	if len(records) == 0 {
		return ErrNoRecords
	}

	mu.RLock()
	fn := registry[format]
	mu.RUnlock()

	if fn == nil {
		return fmt.Errorf("unsupported export format %q", format)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	writeErr := fn(tmp, records)
	closeErr := tmp.Close()

	if writeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", format, writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
