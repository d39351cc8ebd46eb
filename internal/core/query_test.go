package core

import (
	"testing"
	"time"
)

func TestQueryStableOnTies(t *testing.T) {
	idx := NewNameIndex(testLookups())
	// Same date for everyone; relative input order must survive.
	txs := []Transaction{
		tx("a", Expense, 300, 10),
		tx("b", Expense, 100, 10),
		tx("c", Expense, 200, 10),
	}
	for _, dir := range []SortDirection{Ascending, Descending} {
		got, err := Query(txs, "", Filter{}, Sort{SortByDate, dir}, idx)
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		for i, id := range []string{"a", "b", "c"} {
			if got[i].ID != id {
				t.Fatalf("%s: position %d = %s, want %s", dir, i, got[i].ID, id)
			}
		}
	}
}

func TestQueryAscendingReversedEqualsDescending(t *testing.T) {
	idx := NewNameIndex(testLookups())
	txs := []Transaction{
		tx("a", Expense, 300, 1),
		tx("b", Expense, 100, 2),
		tx("c", Expense, 200, 3),
	}
	asc, err := Query(txs, "", Filter{}, Sort{SortByAmount, Ascending}, idx)
	if err != nil {
		t.Fatal(err)
	}
	desc, err := Query(txs, "", Filter{}, Sort{SortByAmount, Descending}, idx)
	if err != nil {
		t.Fatal(err)
	}
	for i := range asc {
		if asc[len(asc)-1-i].ID != desc[i].ID {
			t.Fatalf("reversed ascending differs from descending at %d", i)
		}
	}
}

func TestQueryDoesNotMutateInput(t *testing.T) {
	idx := NewNameIndex(testLookups())
	txs := []Transaction{
		tx("a", Expense, 300, 1),
		tx("b", Income, 100, 2),
		tx("c", Expense, 200, 3),
	}
	snapshot := make([]Transaction, len(txs))
	copy(snapshot, txs)

	if _, err := Query(txs, "", Filter{Types: []TransactionType{Expense}}, Sort{SortByAmount, Descending}, idx); err != nil {
		t.Fatal(err)
	}

	for i := range txs {
		if txs[i].ID != snapshot[i].ID || txs[i].Amount != snapshot[i].Amount {
			t.Fatalf("input mutated at %d: %+v", i, txs[i])
		}
	}
}

func TestQueryRejectsInvalidSpecs(t *testing.T) {
	idx := NewNameIndex(testLookups())
	if _, err := Query(nil, "", Filter{}, Sort{"balance", Ascending}, idx); err == nil {
		t.Fatal("expected error for invalid sort field")
	}
	if _, err := Query(nil, "", Filter{Types: []TransactionType{"refund"}}, Sort{SortByDate, Ascending}, idx); err == nil {
		t.Fatal("expected error for invalid filter type")
	}
}

// End-to-end scenario: January expenses sorted by amount descending, with
// the income transaction excluded by type and the February one by the
// caller's month pre-filter.
func TestQueryScenario(t *testing.T) {
	lk := testLookups()
	idx := NewNameIndex(lk)
	all := []Transaction{
		{ID: "1", Title: "one", Type: Expense, Amount: Money{Cents: 5000}, CategoryID: "groceries", AccountID: "main",
			Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "two", Type: Income, Amount: Money{Cents: 10000}, CategoryID: "salary", AccountID: "main",
			Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Title: "three", Type: Expense, Amount: Money{Cents: 3000}, CategoryID: "groceries", AccountID: "main",
			Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	var january []Transaction
	for _, tr := range all {
		if InMonth(tr.Date, 2024, 1) {
			january = append(january, tr)
		}
	}

	got, err := Query(january, "", Filter{Types: []TransactionType{Expense}}, Sort{SortByAmount, Descending}, idx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "1" || got[0].Amount.Cents != 5000 {
		t.Fatalf("unexpected result: %+v", got)
	}
}
