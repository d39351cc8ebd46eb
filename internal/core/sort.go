package core

import (
	"fmt"
	"strings"
)

const (
	SortByDate     SortField = "date"
	SortByAmount   SortField = "amount"
	SortByCategory SortField = "category"
	SortByTags     SortField = "tags"
	SortByTitle    SortField = "title"
	SortByPerson   SortField = "person"

	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

type (
	SortField     string
	SortDirection string

	// Sort is a field plus direction determining display order.
	Sort struct {
		Field     SortField
		Direction SortDirection
	}
)

func (f SortField) IsValid() bool {
	switch f {
	case SortByDate, SortByAmount, SortByCategory, SortByTags, SortByTitle, SortByPerson:
		return true
	default:
		return false
	}
}

func (d SortDirection) IsValid() bool {
	return d == Ascending || d == Descending
}

func (s Sort) Validate() error {
	if !s.Field.IsValid() {
		return fmt.Errorf("%w: field %q", ErrInvalidSort, s.Field)
	}
	if !s.Direction.IsValid() {
		return fmt.Errorf("%w: direction %q", ErrInvalidSort, s.Direction)
	}
	return nil
}

// Less reports whether a orders before b under the sort spec. Transactions
// with a missing string key (no person, no tags, unknown category) order
// after everything else regardless of direction.
func (s Sort) Less(a, b Transaction, idx NameIndex) bool {
	switch s.Field {
	case SortByDate:
		return lessInt64(a.Date.UnixMilli(), b.Date.UnixMilli(), s.Direction)
	case SortByAmount:
		return lessInt64(a.Amount.Cents, b.Amount.Cents, s.Direction)
	default:
		ka := stringKey(a, s.Field, idx)
		kb := stringKey(b, s.Field, idx)
		// Missing sorts last, in either direction.
		if ka == "" || kb == "" {
			return ka != "" && kb == ""
		}
		return lessString(ka, kb, s.Direction)
	}
}

func stringKey(t Transaction, field SortField, idx NameIndex) string {
	switch field {
	case SortByCategory:
		return strings.ToLower(idx.CategoryName(t.CategoryID))
	case SortByTitle:
		return strings.ToLower(t.Title)
	case SortByPerson:
		if t.PersonID == "" {
			return ""
		}
		return strings.ToLower(idx.PersonName(t.PersonID))
	case SortByTags:
		if len(t.TagIDs) == 0 {
			return ""
		}
		return strings.ToLower(idx.TagName(t.TagIDs[0]))
	default:
		return ""
	}
}

func lessInt64(a, b int64, d SortDirection) bool {
	if d == Descending {
		return b < a
	}
	return a < b
}

func lessString(a, b string, d SortDirection) bool {
	if d == Descending {
		return b < a
	}
	return a < b
}
