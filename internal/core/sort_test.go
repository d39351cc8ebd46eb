package core

import (
	"errors"
	"testing"
)

func TestSortValidate(t *testing.T) {
	cases := []struct {
		s  Sort
		ok bool
	}{
		{Sort{SortByDate, Ascending}, true},
		{Sort{SortByAmount, Descending}, true},
		{Sort{"balance", Ascending}, false},
		{Sort{SortByDate, "up"}, false},
	}
	for i, tc := range cases {
		err := tc.s.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidSort) {
			t.Fatalf("case %d expected ErrInvalidSort, got %v", i, err)
		}
	}
}

func TestSortLessByAmount(t *testing.T) {
	idx := NewNameIndex(testLookups())
	small := tx("1", Expense, 100, 1)
	big := tx("2", Expense, 500, 1)

	asc := Sort{SortByAmount, Ascending}
	desc := Sort{SortByAmount, Descending}

	if !asc.Less(small, big, idx) || asc.Less(big, small, idx) {
		t.Fatal("ascending amount order wrong")
	}
	if !desc.Less(big, small, idx) || desc.Less(small, big, idx) {
		t.Fatal("descending amount order wrong")
	}
	if asc.Less(small, small, idx) {
		t.Fatal("equal keys must not order before each other")
	}
}

func TestSortLessByNames(t *testing.T) {
	idx := NewNameIndex(testLookups())
	a := tx("1", Expense, 100, 1) // Groceries
	b := tx("2", Expense, 100, 1)
	b.CategoryID = "dining" // Dining Out

	s := Sort{SortByCategory, Ascending}
	if !s.Less(b, a, idx) {
		t.Fatal("dining out should order before groceries ascending")
	}

	a.PersonID = "alex"
	b.PersonID = "sam"
	s = Sort{SortByPerson, Descending}
	if !s.Less(b, a, idx) {
		t.Fatal("sam should order before alex descending")
	}
}

func TestSortMissingKeySortsLast(t *testing.T) {
	idx := NewNameIndex(testLookups())
	with := tx("1", Expense, 100, 1)
	with.PersonID = "alex"
	without := tx("2", Expense, 100, 1)

	for _, dir := range []SortDirection{Ascending, Descending} {
		s := Sort{SortByPerson, dir}
		if !s.Less(with, without, idx) {
			t.Fatalf("%s: present key should order before missing key", dir)
		}
		if s.Less(without, with, idx) {
			t.Fatalf("%s: missing key must not order before present key", dir)
		}
		if s.Less(without, without, idx) {
			t.Fatalf("%s: two missing keys compare equal", dir)
		}
	}
}

func TestSortByFirstTagName(t *testing.T) {
	idx := NewNameIndex(testLookups())
	a := tx("1", Expense, 100, 1)
	a.TagIDs = []string{"tag-a"} // Holiday
	b := tx("2", Expense, 100, 1)
	b.TagIDs = []string{"tag-b", "tag-a"} // Work first

	s := Sort{SortByTags, Ascending}
	if !s.Less(a, b, idx) {
		t.Fatal("holiday should order before work")
	}

	none := tx("3", Expense, 100, 1)
	if !s.Less(b, none, idx) {
		t.Fatal("untagged transactions sort last")
	}
}
