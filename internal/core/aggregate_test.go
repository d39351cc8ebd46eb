package core

import (
	"reflect"
	"testing"
	"time"
)

func findSummary(t *testing.T, sums []Summary, id string) Summary {
	t.Helper()
	for _, s := range sums {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("no summary for %q", id)
	return Summary{}
}

func TestMonthBoundary(t *testing.T) {
	lastMilli := time.Date(2024, 1, 31, 23, 59, 59, 999_000_000, time.UTC)
	nextFirst := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	if !InMonth(lastMilli, 2024, 1) {
		t.Fatal("last millisecond of January belongs to January")
	}
	if InMonth(nextFirst, 2024, 1) {
		t.Fatal("first instant of February does not belong to January")
	}
	// December wraps the year
	if !InMonth(time.Date(2024, 12, 31, 23, 59, 59, 999_000_000, time.UTC), 2024, 12) {
		t.Fatal("December window broken")
	}
}

func TestAggregateByCategoryScenario(t *testing.T) {
	lk := testLookups()
	txs := []Transaction{
		tx("1", Expense, 5000, 15),
		tx("2", Income, 10000, 20),
	}
	feb := tx("3", Expense, 3000, 1)
	feb.Date = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	txs = append(txs, feb)

	sums, unresolved := AggregateByCategory(txs, lk, 2024, 1)
	if unresolved != 0 {
		t.Fatalf("unresolved = %d", unresolved)
	}

	g := findSummary(t, sums, "groceries")
	if g.TotalCents != -5000 || g.ExpenseCents != 5000 || g.ExpenseCount != 1 || g.TotalCount != 1 {
		t.Fatalf("groceries summary wrong: %+v", g)
	}
	if g.AverageCents != -5000 || g.HighestCents != 5000 || g.LowestCents != 5000 {
		t.Fatalf("groceries stats wrong: %+v", g)
	}

	s := findSummary(t, sums, "salary")
	if s.TotalCents != 10000 || s.IncomeCents != 10000 || s.IncomeCount != 1 {
		t.Fatalf("salary summary wrong: %+v", s)
	}

	// Unused groups still emitted with zero values.
	d := findSummary(t, sums, "dining")
	if d.TotalCount != 0 || d.TotalCents != 0 || d.HighestCents != 0 || d.LowestCents != 0 {
		t.Fatalf("unused group not zeroed: %+v", d)
	}
}

func TestAggregateParentRollUp(t *testing.T) {
	lk := testLookups()
	txs := []Transaction{
		tx("1", Expense, 5000, 10), // groceries, child of food
		tx("2", Expense, 2000, 11), // groceries
	}
	txs[1].CategoryID = "dining"

	sums, _ := AggregateByCategory(txs, lk, 2024, 1)

	parent := findSummary(t, sums, "food")
	if parent.TotalCents != -7000 || parent.ExpenseCents != 7000 {
		t.Fatalf("amounts should roll up to the parent: %+v", parent)
	}
	// Counts stay on the direct groups so the month's transaction count is
	// conserved across groups.
	if parent.TotalCount != 0 {
		t.Fatalf("parent count should not include child transactions: %+v", parent)
	}
	if !parent.IsParent {
		t.Fatalf("parent flag lost: %+v", parent)
	}
	child := findSummary(t, sums, "groceries")
	if child.ParentID != "food" || child.TotalCount != 1 {
		t.Fatalf("child summary wrong: %+v", child)
	}
}

func TestAggregateCountConservation(t *testing.T) {
	lk := testLookups()
	txs := []Transaction{
		tx("1", Expense, 100, 1),
		tx("2", Expense, 200, 2),
		tx("3", Income, 300, 3),
		tx("4", Transfer, 400, 4),
	}
	unknown := tx("5", Expense, 500, 5)
	unknown.CategoryID = "deleted"
	txs = append(txs, unknown)

	sums, unresolved := AggregateByCategory(txs, lk, 2024, 1)
	if unresolved != 1 {
		t.Fatalf("unresolved = %d, want 1", unresolved)
	}

	total := 0
	for _, s := range sums {
		total += s.TotalCount
	}
	if total != 4 {
		t.Fatalf("count sum = %d, want 4 (known-category January transactions)", total)
	}
}

func TestAggregateByTagMultiMembership(t *testing.T) {
	lk := testLookups()
	a := tx("1", Expense, 1000, 5)
	a.TagIDs = []string{"tag-a", "tag-b"}
	b := tx("2", Income, 2000, 6)
	b.TagIDs = []string{"tag-a", "gone"}

	sums, unresolved := AggregateByTag([]Transaction{a, b}, lk, 2024, 1)
	if unresolved != 1 {
		t.Fatalf("unresolved = %d, want 1", unresolved)
	}

	ta := findSummary(t, sums, "tag-a")
	if ta.TotalCount != 2 || ta.TotalCents != 1000 || ta.ExpenseCents != 1000 || ta.IncomeCents != 2000 {
		t.Fatalf("tag-a summary wrong: %+v", ta)
	}
	tb := findSummary(t, sums, "tag-b")
	if tb.TotalCount != 1 || tb.TotalCents != -1000 {
		t.Fatalf("tag-b summary wrong: %+v", tb)
	}
	tc := findSummary(t, sums, "tag-c")
	if tc.TotalCount != 0 {
		t.Fatalf("unused tag group not zeroed: %+v", tc)
	}
}

func TestAggregateByPerson(t *testing.T) {
	lk := testLookups()
	a := tx("1", Expense, 1500, 5)
	a.PersonID = "alex"
	b := tx("2", Expense, 500, 6)
	b.PersonID = "ghost" // deleted person
	c := tx("3", Income, 700, 7) // no person at all

	sums, unresolved := AggregateByPerson([]Transaction{a, b, c}, lk, 2024, 1)
	if unresolved != 1 {
		t.Fatalf("unresolved = %d, want 1 (missing person is not unresolved)", unresolved)
	}

	alex := findSummary(t, sums, "alex")
	if alex.TotalCount != 1 || alex.TotalCents != -1500 {
		t.Fatalf("alex summary wrong: %+v", alex)
	}
}

func TestAggregateTransfersAreNetNeutral(t *testing.T) {
	lk := testLookups()
	tr := tx("1", Transfer, 4000, 10)

	sums, _ := AggregateByCategory([]Transaction{tr}, lk, 2024, 1)
	m := findSummary(t, sums, "moves")
	if m.TotalCents != 0 {
		t.Fatalf("transfer contributed %d to the signed net", m.TotalCents)
	}
	if m.TransferCents != 4000 || m.TransferCount != 1 || m.TotalCount != 1 {
		t.Fatalf("transfer sums wrong: %+v", m)
	}
	if !m.IsSystem {
		t.Fatalf("system flag lost: %+v", m)
	}
}

func TestAggregateDeterministic(t *testing.T) {
	lk := testLookups()
	txs := []Transaction{
		tx("1", Expense, 123, 1),
		tx("2", Income, 456, 2),
		tx("3", Transfer, 789, 3),
	}
	first, u1 := AggregateByCategory(txs, lk, 2024, 1)
	second, u2 := AggregateByCategory(txs, lk, 2024, 1)
	if u1 != u2 || !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must yield identical aggregates")
	}
}
