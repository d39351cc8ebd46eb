// Package services orchestrates the core engine, the backend and the
// message broker.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"tally/internal/amqp"
	"tally/internal/backend"
	"tally/internal/core"
	"tally/internal/log"
)

// ChangePublisher is the slice of the AMQP client the service needs.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

// TransactionService handles the write path: validate, persist, adjust the
// counterparty balance, then notify the worker. Broker failures never fail
// the request; the ledger is the source of truth.
type TransactionService struct {
	store      backend.Backend
	publisher  ChangePublisher
	invalidate func(year, month int)
	logger     *log.Logger
}

func NewTransactionService(store backend.Backend, publisher ChangePublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTransaction),
	}
}

// OnChange registers a callback invoked after every successful write, with
// the year and month of the affected transaction.
func (s *TransactionService) OnChange(fn func(year, month int)) {
	s.invalidate = fn
}

// Create validates the transaction, assigns it an id if it has none, and
// persists it.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if _, err := s.store.Append(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.adjustPersonBalance(ctx, t, false); err != nil {
		s.logger.ErrorContext(ctx, "Failed to adjust person balance",
			log.FieldTransactionID, t.ID,
			log.FieldPersonID, t.PersonID,
			log.FieldError, err)
	}

	s.notifyChange(ctx, t, amqp.ActionCreated)
	return t, nil
}

// Delete removes the transaction and reverses its effect on the
// counterparty balance.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.adjustPersonBalance(ctx, t, true); err != nil {
		s.logger.ErrorContext(ctx, "Failed to reverse person balance",
			log.FieldTransactionID, t.ID,
			log.FieldPersonID, t.PersonID,
			log.FieldError, err)
	}

	s.notifyChange(ctx, t, amqp.ActionDeleted)
	return nil
}

// List runs the query pipeline over the whole ledger.
func (s *TransactionService) List(ctx context.Context, search string, f core.Filter, sp core.Sort) ([]core.Transaction, error) {
	ts, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	lk, err := s.store.Lookups(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lookups: %w", err)
	}
	return core.Query(ts, search, f, sp, core.NewNameIndex(lk))
}

// Lookups returns the reference table.
func (s *TransactionService) Lookups(ctx context.Context) (core.Lookups, error) {
	return s.store.Lookups(ctx)
}

// An expense shared with a person raises what they owe; an income from
// them lowers it. Transfers carry no person.
func (s *TransactionService) adjustPersonBalance(ctx context.Context, t core.Transaction, reverse bool) error {
	if t.PersonID == "" {
		return nil
	}
	var delta int64
	switch t.Type {
	case core.Expense:
		delta = t.Amount.Cents
	case core.Income:
		delta = -t.Amount.Cents
	default:
		return nil
	}
	if reverse {
		delta = -delta
	}
	return s.store.AdjustPersonBalance(ctx, t.PersonID, delta)
}

func (s *TransactionService) notifyChange(ctx context.Context, t core.Transaction, action string) {
	year, month := t.Date.UTC().Year(), int(t.Date.UTC().Month())

	if s.invalidate != nil {
		s.invalidate(year, month)
	}

	if s.publisher == nil {
		return
	}
	msg := amqp.NewLedgerChangeMessage(t.ID, year, month, action)
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger change",
			log.FieldTransactionID, t.ID,
			log.FieldError, err)
	}
}
