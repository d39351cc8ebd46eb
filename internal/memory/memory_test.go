package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"
)

func testTx(id string, day int) core.Transaction {
	return core.Transaction{
		ID:        id,
		Title:     "tx " + id,
		Amount:    core.Money{Cents: 1000},
		Date:      time.Date(2024, time.March, day, 12, 0, 0, 0, time.UTC),
		Type:      core.Expense,
		AccountID: "acc-main",
	}
}

func TestAppendAndGet(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	id, err := s.Append(ctx, testTx("t1", 5))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id != "t1" {
		t.Fatalf("Append returned id %q", id)
	}

	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "tx t1" {
		t.Fatalf("Get returned %+v", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("Get missing: %v", err)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := NewSeeded()
	bad := testTx("t1", 5)
	bad.Title = ""
	if _, err := s.Append(context.Background(), bad); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	if _, err := s.Append(ctx, testTx("t1", 5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "t1"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestListMonthWindow(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	feb := testTx("feb", 1)
	feb.Date = time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC)
	mar1 := testTx("mar1", 1)
	mar31 := testTx("mar31", 31)
	for _, tx := range []core.Transaction{feb, mar1, mar31} {
		if _, err := s.Append(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListMonth(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListMonth returned %d transactions", len(got))
	}
	if got[0].ID != "mar31" || got[1].ID != "mar1" {
		t.Fatalf("ListMonth order = [%s %s], want newest first", got[0].ID, got[1].ID)
	}
}

func TestListAllNewestFirst(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		tx := testTx(id, map[string]int{"a": 10, "b": 20, "c": 15}[id])
		if _, err := s.Append(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestAdjustPersonBalance(t *testing.T) {
	s := New(core.Lookups{People: []core.Person{{ID: "p1", Name: "Alex"}}})
	ctx := context.Background()

	if err := s.AdjustPersonBalance(ctx, "p1", 2500); err != nil {
		t.Fatalf("AdjustPersonBalance: %v", err)
	}
	if err := s.AdjustPersonBalance(ctx, "p1", -500); err != nil {
		t.Fatalf("AdjustPersonBalance: %v", err)
	}
	lk, err := s.Lookups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lk.People[0].BalanceCents != 2000 {
		t.Fatalf("balance = %d, want 2000", lk.People[0].BalanceCents)
	}

	if err := s.AdjustPersonBalance(ctx, "nope", 1); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("unknown person: %v", err)
	}
}

func TestLookupsReturnsCopy(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	lk, err := s.Lookups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	lk.Tags[0].Name = "mutated"
	lk.Categories[0].Children[0].Name = "mutated"
	lk.Categories[0].Children = append(lk.Categories[0].Children, core.Category{ID: "rogue"})
	again, err := s.Lookups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if again.Tags[0].Name == "mutated" {
		t.Fatal("Lookups shares tag state with callers")
	}
	if again.Categories[0].Children[0].Name == "mutated" {
		t.Fatal("Lookups shares category children with callers")
	}
	if len(again.Categories[0].Children) != 2 {
		t.Fatalf("caller append leaked into store: %+v", again.Categories[0].Children)
	}
}

func TestSeededCategoriesMarkParents(t *testing.T) {
	lk, err := NewSeeded().Lookups(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range lk.Categories {
		if (len(c.Children) > 0) != c.IsParent {
			t.Fatalf("category %s: IsParent = %v with %d children", c.ID, c.IsParent, len(c.Children))
		}
	}
}

func TestTransactionsReturnCopies(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	tx := testTx("t1", 5)
	tx.TagIDs = []string{"tag-recurring"}
	if _, err := s.Append(ctx, tx); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	got.TagIDs[0] = "mutated"

	again, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if again.TagIDs[0] != "tag-recurring" {
		t.Fatalf("Get shares tag ids with callers: %v", again.TagIDs)
	}
}
