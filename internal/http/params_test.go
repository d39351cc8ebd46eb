package http

import (
	"net/url"
	"testing"
	"time"

	"tally/internal/core"
)

func TestParseFilterDefaultsToUnrestricted(t *testing.T) {
	f, err := parseFilter(url.Values{})
	if err != nil {
		t.Fatalf("parseFilter: %v", err)
	}
	if len(f.Types) != 0 || len(f.Categories) != 0 || len(f.Tags) != 0 ||
		len(f.People) != 0 || len(f.Accounts) != 0 {
		t.Fatalf("expected empty filter, got %+v", f)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		t.Fatalf("expected unbounded dates, got %v..%v", f.From, f.To)
	}
	if f.Amount.Op != "" {
		t.Fatalf("expected no amount constraint, got %+v", f.Amount)
	}
}

func TestParseFilterDecodesDimensions(t *testing.T) {
	q := url.Values{
		"types":         {"expense, income"},
		"categories":    {"cat-a,cat-b"},
		"tags":          {"tag-a"},
		"people":        {"p-1"},
		"accounts":      {"acc-1,acc-2"},
		"from":          {"2024-03-01"},
		"to":            {"2024-03-31"},
		"amount_op":     {"between"},
		"amount_value1": {"10"},
		"amount_value2": {"20"},
	}
	f, err := parseFilter(q)
	if err != nil {
		t.Fatalf("parseFilter: %v", err)
	}

	if len(f.Types) != 2 || f.Types[0] != core.Expense || f.Types[1] != core.Income {
		t.Fatalf("types = %v", f.Types)
	}
	if len(f.Categories) != 2 || len(f.Accounts) != 2 {
		t.Fatalf("lists = %+v", f)
	}
	want := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	if !f.From.Equal(want) {
		t.Fatalf("from = %v", f.From)
	}
	if f.Amount.Op != core.AmountBetween || f.Amount.Value1 != "10" || f.Amount.Value2 != "20" {
		t.Fatalf("amount = %+v", f.Amount)
	}
}

func TestParseFilterRejectsBadDates(t *testing.T) {
	if _, err := parseFilter(url.Values{"from": {"not-a-date"}}); err == nil {
		t.Fatal("expected error for bad from date")
	}
	if _, err := parseFilter(url.Values{"to": {"31/03/2024"}}); err == nil {
		t.Fatal("expected error for bad to date")
	}
}

func TestParseSortDefaults(t *testing.T) {
	s := parseSort(url.Values{})
	if s.Field != core.SortByDate || s.Direction != core.Descending {
		t.Fatalf("default sort = %+v", s)
	}

	s = parseSort(url.Values{"sort_by": {"amount"}, "sort_dir": {"asc"}})
	if s.Field != core.SortByAmount || s.Direction != core.Ascending {
		t.Fatalf("sort = %+v", s)
	}
}

func TestParseMonthParams(t *testing.T) {
	p, err := parseMonthParams(url.Values{"year": {"2024"}, "month": {"3"}})
	if err != nil {
		t.Fatalf("parseMonthParams: %v", err)
	}
	if p.Year != 2024 || p.Month != 3 {
		t.Fatalf("params = %+v", p)
	}

	if _, err := parseMonthParams(url.Values{"month": {"13"}}); err == nil {
		t.Fatal("expected error for month 13")
	}
	if _, err := parseMonthParams(url.Values{"year": {"twenty"}}); err == nil {
		t.Fatal("expected error for non-numeric year")
	}
}
