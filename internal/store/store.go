// Package store persists the session record log.
package store

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"

	"session_tracker/internal/session"
)

// Store loads and saves the complete record log.
type Store interface {
	// Load returns all readable records, most recent first. Unreadable lines are
	// skipped and reported through the returned warnings.
	Load() ([]session.Record, []error, error)
	// Save replaces the persisted log with log.
	Save(log []session.Record) error
	// Path names the file backing the store.
	Path() string
	Close() error
}

// Backends
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Open opens the store for the given backend at path.
func Open(backend, path string, logger hclog.Logger) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendCSV:
		return OpenCSV(path, logger)
	case BackendSQLite:
		return OpenSQLite(path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

// PersistenceError reports a failed write of the record log
type PersistenceError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (attempt %d): %v", e.Path, e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
