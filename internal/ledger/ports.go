// Package ledger declares the outbound ports the query engine's
// collaborators implement: anything that can persist and list transactions
// and serve the lookup table.
package ledger

import (
	"context"
	"errors"

	"tally/internal/core"
)

// ErrNotFound is returned when a transaction id has no row behind it.
var ErrNotFound = errors.New("transaction not found")

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// Append persists the transaction and returns its storage id.
		Append(ctx context.Context, t core.Transaction) (string, error)
	}

	TransactionReader interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
	}

	TransactionDeleter interface {
		Delete(ctx context.Context, id string) error
	}

	// TransactionLister supplies the in-memory lists the query engine
	// consumes.
	TransactionLister interface {
		// ListAll returns every transaction, newest first by date.
		ListAll(ctx context.Context) ([]core.Transaction, error)
		// ListMonth returns the transactions inside the given month window.
		ListMonth(ctx context.Context, year, month int) ([]core.Transaction, error)
	}

	// LookupReader serves the read-only reference table: categories with
	// their hierarchy, tags, people and accounts.
	LookupReader interface {
		Lookups(ctx context.Context) (core.Lookups, error)
	}

	// PersonBalancer adjusts a counterparty's running balance by a signed
	// number of cents.
	PersonBalancer interface {
		AdjustPersonBalance(ctx context.Context, personID string, deltaCents int64) error
	}
)
