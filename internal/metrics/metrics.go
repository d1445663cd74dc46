// Package metrics decouples the extraction pipeline from any particular
// metrics vendor. Core code calls the package-level Record helpers; a
// process wires a concrete Backend (or none) at startup.
package metrics

import (
	"sync"
	"time"
)

// Backend receives measurements from the pipeline.
//
// Implementations must be safe for concurrent use. Flush submits anything
// buffered and may be called repeatedly.
type Backend interface {
	RecordHTTP(status int, err error, duration time.Duration, sizeBytes int64)
	RecordExport(format string, records int, err error)
	Flush() error
}

var (
	mu      sync.RWMutex
	backend Backend
)

// SetBackend installs the process-wide backend. Passing nil disables
// recording, which is also the initial state.
func SetBackend(b Backend) {
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// RecordHTTP records one page-fetch attempt. A status of 0 means the request
// never produced a response.
func RecordHTTP(status int, err error, duration time.Duration, sizeBytes int64) {
	if b := current(); b != nil {
		b.RecordHTTP(status, err, duration, sizeBytes)
	}
}

// RecordExport records the outcome of one export format.
func RecordExport(format string, records int, err error) {
	if b := current(); b != nil {
		b.RecordExport(format, records, err)
	}
}

// Flush submits buffered measurements, if a backend is installed.
func Flush() error {
	if b := current(); b != nil {
		return b.Flush()
	}
	return nil
}
