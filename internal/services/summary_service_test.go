package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
)

func summaryFixture(t *testing.T) (*SummaryService, *TransactionService) {
	t.Helper()
	store := testStore()
	c := cache.NewLRUCache[MonthSummaries](10, time.Minute)
	sum := NewSummaryService(store, c, nil)
	txs := NewTransactionService(store, nil, nil)
	txs.OnChange(sum.InvalidateMonth)
	return sum, txs
}

func TestMonthAggregatesCategories(t *testing.T) {
	sum, txs := summaryFixture(t)
	ctx := context.Background()

	groceries := serviceTx("weekly shop", 5000)
	groceries.CategoryID = "cat-groceries"
	if _, err := txs.Create(ctx, groceries); err != nil {
		t.Fatal(err)
	}

	got, err := sum.Month(ctx, DimensionCategories, 2024, 3)
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if got.Unresolved != 0 {
		t.Fatalf("unresolved = %d", got.Unresolved)
	}

	var food, grocery *core.Summary
	for i := range got.Summaries {
		switch got.Summaries[i].ID {
		case "cat-food":
			food = &got.Summaries[i]
		case "cat-groceries":
			grocery = &got.Summaries[i]
		}
	}
	if grocery == nil || food == nil {
		t.Fatal("expected groups for both category levels")
	}
	if grocery.ExpenseCents != 5000 || grocery.TotalCount != 1 {
		t.Fatalf("groceries group = %+v", grocery)
	}
	if food.ExpenseCents != 5000 || food.TotalCount != 0 {
		t.Fatalf("parent roll-up = %+v", food)
	}
}

func TestMonthCachesUntilInvalidated(t *testing.T) {
	sum, txs := summaryFixture(t)
	ctx := context.Background()

	first := serviceTx("one", 1000)
	first.CategoryID = "cat-groceries"
	if _, err := txs.Create(ctx, first); err != nil {
		t.Fatal(err)
	}

	before, err := sum.Month(ctx, DimensionCategories, 2024, 3)
	if err != nil {
		t.Fatal(err)
	}

	// The write invalidates the month, so the next read recomputes.
	second := serviceTx("two", 2000)
	second.CategoryID = "cat-groceries"
	if _, err := txs.Create(ctx, second); err != nil {
		t.Fatal(err)
	}

	after, err := sum.Month(ctx, DimensionCategories, 2024, 3)
	if err != nil {
		t.Fatal(err)
	}

	sumOf := func(ms MonthSummaries) int64 {
		var total int64
		for _, s := range ms.Summaries {
			if s.ID == "cat-groceries" {
				total = s.ExpenseCents
			}
		}
		return total
	}
	if sumOf(before) != 1000 || sumOf(after) != 3000 {
		t.Fatalf("expense before/after = %d/%d, want 1000/3000", sumOf(before), sumOf(after))
	}
}

func TestMonthCountsUnresolvedReferences(t *testing.T) {
	sum, txs := summaryFixture(t)
	ctx := context.Background()

	ghost := serviceTx("ghost", 700)
	ghost.CategoryID = "cat-deleted"
	if _, err := txs.Create(ctx, ghost); err != nil {
		t.Fatal(err)
	}

	got, err := sum.Month(ctx, DimensionCategories, 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got.Unresolved != 1 {
		t.Fatalf("unresolved = %d, want 1", got.Unresolved)
	}
}

func TestMonthRejectsUnknownDimension(t *testing.T) {
	sum, _ := summaryFixture(t)
	if _, err := sum.Month(context.Background(), "accounts", 2024, 3); !errors.Is(err, ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension, got %v", err)
	}
}

func TestReportCoversAllDimensions(t *testing.T) {
	sum, txs := summaryFixture(t)
	ctx := context.Background()

	shared := serviceTx("dinner", 4000)
	shared.CategoryID = "cat-groceries"
	shared.PersonID = "p-alex"
	shared.TagIDs = []string{"tag-a"}
	if _, err := txs.Create(ctx, shared); err != nil {
		t.Fatal(err)
	}

	report, err := sum.Report(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Year != 2024 || report.Month != 3 {
		t.Fatalf("report window = %d-%d", report.Year, report.Month)
	}
	if len(report.Tags.Summaries) != 1 || report.Tags.Summaries[0].TotalCount != 1 {
		t.Fatalf("tag dimension = %+v", report.Tags)
	}
	if len(report.People.Summaries) != 1 || report.People.Summaries[0].ExpenseCents != 4000 {
		t.Fatalf("people dimension = %+v", report.People)
	}
}
