package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	AmountBetween      AmountOp = "between"
	AmountGreater      AmountOp = "greater"
	AmountLess         AmountOp = "less"
	AmountEqual        AmountOp = "equal"
	AmountNotEqual     AmountOp = "not_equal"
	AmountGreaterEqual AmountOp = "greater_equal"
	AmountLessEqual    AmountOp = "less_equal"
)

type (
	// AmountOp is the comparison operator of an amount constraint.
	AmountOp string

	// AmountFilter constrains the transaction magnitude. Values arrive as
	// user-typed strings; an empty or unparseable Value1 disables the
	// constraint rather than failing.
	AmountFilter struct {
		Op     AmountOp
		Value1 string
		Value2 string // second bound, only meaningful for between
	}

	// Filter is a declarative set of inclusion constraints. An empty set
	// for any dimension means no restriction on that dimension.
	Filter struct {
		Types      []TransactionType
		Categories []string
		Tags       []string
		People     []string
		Accounts   []string
		From       time.Time // zero value = unbounded
		To         time.Time // zero value = unbounded
		Amount     AmountFilter
	}
)

func (op AmountOp) IsValid() bool {
	switch op {
	case AmountBetween, AmountGreater, AmountLess, AmountEqual,
		AmountNotEqual, AmountGreaterEqual, AmountLessEqual:
		return true
	default:
		return false
	}
}

// Validate rejects out-of-enum values. Malformed amount values are not an
// error here: they degrade to "no restriction" at evaluation time.
func (f Filter) Validate() error {
	for _, ty := range f.Types {
		if !ty.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidType, ty)
		}
	}
	if f.Amount.Op != "" && !f.Amount.Op.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAmountOp, f.Amount.Op)
	}
	return nil
}

// Matches reports whether the transaction passes the search term and every
// dimension of the filter. Dimensions combine with AND; multiple values
// within a dimension combine with OR.
func (f Filter) Matches(t Transaction, search string, idx NameIndex) bool {
	if !matchesSearch(t, search, idx) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, t.Type) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, t.CategoryID) {
		return false
	}
	if len(f.People) > 0 {
		if t.PersonID == "" || !containsString(f.People, t.PersonID) {
			return false
		}
	}
	if len(f.Accounts) > 0 {
		if !containsString(f.Accounts, t.AccountID) &&
			(t.ToAccountID == "" || !containsString(f.Accounts, t.ToAccountID)) {
			return false
		}
	}
	if len(f.Tags) > 0 && !intersects(f.Tags, t.TagIDs) {
		return false
	}
	if !f.From.IsZero() && t.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.Date.After(f.To) {
		return false
	}
	return f.Amount.matches(t.Amount.Cents)
}

// matchesSearch is a case-insensitive substring match against the title and
// the resolved category and person names. An empty term passes everything.
func matchesSearch(t Transaction, search string, idx NameIndex) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(idx.CategoryName(t.CategoryID)), q) ||
		strings.Contains(strings.ToLower(idx.PersonName(t.PersonID)), q)
}

// matches evaluates the amount constraint against a magnitude in cents.
// An empty or unparseable first value passes unconditionally.
func (af AmountFilter) matches(cents int64) bool {
	if af.Op == "" {
		return true
	}
	v1, err := ParseAmountCents(af.Value1)
	if err != nil {
		return true
	}
	switch af.Op {
	case AmountBetween:
		v2, err := ParseAmountCents(af.Value2)
		if err != nil {
			return true
		}
		return cents >= v1 && cents <= v2
	case AmountGreater:
		return cents > v1
	case AmountLess:
		return cents < v1
	case AmountEqual:
		return cents == v1
	case AmountNotEqual:
		return cents != v1
	case AmountGreaterEqual:
		return cents >= v1
	case AmountLessEqual:
		return cents <= v1
	default:
		return true
	}
}

func containsType(set []TransactionType, v TransactionType) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func intersects(set, vals []string) bool {
	for _, v := range vals {
		if containsString(set, v) {
			return true
		}
	}
	return false
}
