// Package memory is the default zero-dependency backend. It keeps the
// ledger in process memory behind a mutex, which is enough for local
// development and for tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"tally/internal/core"
	"tally/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	lookups core.Lookups
	items   []core.Transaction
}

func New(lookups core.Lookups) *Store {
	return &Store{lookups: lookups}
}

// NewSeeded returns a store with a small default reference table so a
// memory-backed instance is usable out of the box.
func NewSeeded() *Store {
	return New(core.Lookups{
		Categories: []core.Category{
			{ID: "cat-home", Name: "Home", Icon: "home", IsParent: true, Children: []core.Category{
				{ID: "cat-rent", Name: "Rent", ParentID: "cat-home"},
				{ID: "cat-utilities", Name: "Utilities", ParentID: "cat-home"},
			}},
			{ID: "cat-food", Name: "Food", Icon: "utensils", IsParent: true, Children: []core.Category{
				{ID: "cat-groceries", Name: "Groceries", ParentID: "cat-food"},
				{ID: "cat-dining", Name: "Dining Out", ParentID: "cat-food"},
			}},
			{ID: "cat-salary", Name: "Salary", Icon: "banknote"},
			{ID: "cat-moves", Name: "Money Moves", Icon: "repeat", IsSystem: true},
		},
		Tags: []core.Tag{
			{ID: "tag-recurring", Name: "recurring"},
			{ID: "tag-shared", Name: "shared"},
		},
		Accounts: []core.Account{
			{ID: "acc-main", Name: "Main"},
			{ID: "acc-savings", Name: "Savings"},
		},
	})
}

func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, copyTransaction(t))
	return t.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id {
			return copyTransaction(t), nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) ListAll(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.items))
	for i, t := range s.items {
		out[i] = copyTransaction(t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (s *Store) ListMonth(_ context.Context, year, month int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.items {
		if core.InMonth(t.Date, year, month) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// Lookups returns a copy deep enough that callers can append to any slice
// they got back, category children included, without touching store state.
func (s *Store) Lookups(_ context.Context) (core.Lookups, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.lookups
	out.Categories = make([]core.Category, len(s.lookups.Categories))
	for i, c := range s.lookups.Categories {
		c.Children = append([]core.Category(nil), c.Children...)
		out.Categories[i] = c
	}
	out.Tags = append([]core.Tag(nil), s.lookups.Tags...)
	out.People = append([]core.Person(nil), s.lookups.People...)
	out.Accounts = append([]core.Account(nil), s.lookups.Accounts...)
	return out, nil
}

func copyTransaction(t core.Transaction) core.Transaction {
	t.TagIDs = append([]string(nil), t.TagIDs...)
	return t
}

func (s *Store) AdjustPersonBalance(_ context.Context, personID string, deltaCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lookups.People {
		if s.lookups.People[i].ID == personID {
			s.lookups.People[i].BalanceCents += deltaCents
			return nil
		}
	}
	return ledger.ErrNotFound
}
