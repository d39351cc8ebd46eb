// Package backend selects and builds the persistence layer behind the
// ledger ports.
package backend

import (
	"context"

	"tally/internal/ledger"
)

// Backend is the full persistence surface the services need.
type Backend interface {
	ledger.TransactionWriter
	ledger.TransactionReader
	ledger.TransactionDeleter
	ledger.TransactionLister
	ledger.LookupReader
	ledger.PersonBalancer
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// BackendResult pairs a backend with its cleanup.
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what each backend needs to come up.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	PostgresURL string
}

// BackendType selects the persistence implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
