package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income   TransactionType = "income"
	Expense  TransactionType = "expense"
	Transfer TransactionType = "transfer"
)

type (
	// TransactionType is the closed set of transaction kinds.
	TransactionType string

	// Money is an unsigned magnitude in cents. The sign of a movement is
	// derived from the owning transaction's type, never stored here.
	Money struct {
		Cents int64
	}

	// Transaction is a single recorded financial event. Relations are held
	// by id; names, icons and colors live in Lookups.
	Transaction struct {
		ID          string
		Title       string
		Amount      Money
		Date        time.Time
		Type        TransactionType
		CategoryID  string
		AccountID   string
		ToAccountID string // destination account, set only for transfers
		PersonID    string // counterparty for shared expenses, optional
		TagIDs      []string
		Note        string
	}

	// Category is a two-level classification: parents optionally own an
	// ordered list of children.
	Category struct {
		ID          string
		Name        string
		Description string
		Icon        string
		Color       string
		BgColor     string
		Type        TransactionType
		IsParent    bool
		IsSystem    bool
		ParentID    string
		Children    []Category
	}

	// Tag is a flat label, many-to-many with transactions.
	Tag struct {
		ID          string
		Name        string
		Description string
		Icon        string
		Color       string
		BgColor     string
		IsSystem    bool
	}

	// Person is a counterparty in shared expenses. BalanceCents is the
	// running net owed: positive means they owe us.
	Person struct {
		ID           string
		Name         string
		Email        string
		Description  string
		Avatar       string
		Phone        string
		BalanceCents int64
	}

	// Account is a wallet or bank entry.
	Account struct {
		ID           string
		Name         string
		Description  string
		Icon         string
		Color        string
		BgColor      string
		BalanceCents int64
	}

	// Lookups is the read-only reference table the engine consults for
	// names and hierarchy. It is passed in explicitly so the engine stays a
	// pure function of its arguments.
	Lookups struct {
		Categories []Category
		Tags       []Tag
		People     []Person
		Accounts   []Account
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyAccount     = errors.New("empty account")
	ErrInvalidTransfer  = errors.New("destination account requires transfer type")
	ErrMissingToAccount = errors.New("transfer requires destination account")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrInvalidSort      = errors.New("invalid sort spec")
	ErrInvalidAmountOp  = errors.New("invalid amount operator")
)

// IsValid reports whether the type is one of the closed set.
func (t TransactionType) IsValid() bool {
	switch t {
	case Income, Expense, Transfer:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Title)) == 0 {
		return ErrEmptyTitle
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.AccountID == "" {
		return ErrEmptyAccount
	}
	// ToAccountID is set if and only if the transaction is a transfer.
	if t.Type == Transfer && t.ToAccountID == "" {
		return ErrMissingToAccount
	}
	if t.Type != Transfer && t.ToAccountID != "" {
		return ErrInvalidTransfer
	}
	return nil
}

// NameIndex resolves relation ids to display names for searching and
// sorting. Unknown ids resolve to the empty string.
type NameIndex struct {
	categories map[string]string
	tags       map[string]string
	people     map[string]string
}

// NewNameIndex builds a NameIndex from the lookup table, flattening the
// category hierarchy.
func NewNameIndex(lk Lookups) NameIndex {
	idx := NameIndex{
		categories: make(map[string]string),
		tags:       make(map[string]string),
		people:     make(map[string]string),
	}
	for _, c := range lk.Categories {
		idx.categories[c.ID] = c.Name
		for _, child := range c.Children {
			idx.categories[child.ID] = child.Name
		}
	}
	for _, tg := range lk.Tags {
		idx.tags[tg.ID] = tg.Name
	}
	for _, p := range lk.People {
		idx.people[p.ID] = p.Name
	}
	return idx
}

func (idx NameIndex) CategoryName(id string) string { return idx.categories[id] }
func (idx NameIndex) TagName(id string) string      { return idx.tags[id] }
func (idx NameIndex) PersonName(id string) string   { return idx.people[id] }

// FlatCategories walks the two-level hierarchy in lookup order: each parent
// followed by its children. A category with children is a parent whether or
// not the source marked it as one.
func (lk Lookups) FlatCategories() []Category {
	out := make([]Category, 0, len(lk.Categories))
	for _, c := range lk.Categories {
		if len(c.Children) > 0 {
			c.IsParent = true
		}
		out = append(out, c)
		out = append(out, c.Children...)
	}
	return out
}
