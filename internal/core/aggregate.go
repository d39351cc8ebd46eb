package core

import "time"

// Summary holds the per-group monthly aggregate for one category, tag or
// person. TotalCents is the signed net: income positive, expense negative,
// transfers neutral. The per-type sums hold unsigned magnitudes.
type Summary struct {
	ID      string
	Name    string
	Icon    string
	Color   string
	BgColor string

	TotalCents    int64
	ExpenseCents  int64
	IncomeCents   int64
	TransferCents int64

	TotalCount    int
	ExpenseCount  int
	IncomeCount   int
	TransferCount int

	AverageCents int64
	HighestCents int64
	LowestCents  int64

	IsParent bool
	ParentID string
	IsSystem bool
}

// MonthRange returns the half-open UTC window [first instant of the month,
// first instant of the next month). Month is 1-12.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// InMonth reports whether the instant falls inside the month window. The
// last millisecond of the month is in; the first instant of the next month
// is out.
func InMonth(t time.Time, year, month int) bool {
	start, end := MonthRange(year, month)
	return !t.Before(start) && t.Before(end)
}

// AggregateByCategory groups the month's transactions by category id and
// computes per-group totals. Every category in the lookup table gets a
// group, used or not, in lookup order (parents followed by their children).
// A child's amount sums also accrue to its parent's group; transaction
// counts and extremes stay on the direct group so that counts across all
// groups conserve the month's transaction count. The second return value is
// the number of transactions referencing a category id absent from the
// lookup table; those are dropped from the aggregate.
func AggregateByCategory(ts []Transaction, lk Lookups, year, month int) ([]Summary, int) {
	flat := lk.FlatCategories()
	sums := make([]Summary, len(flat))
	pos := make(map[string]int, len(flat))
	for i, c := range flat {
		sums[i] = Summary{
			ID: c.ID, Name: c.Name, Icon: c.Icon, Color: c.Color, BgColor: c.BgColor,
			IsParent: c.IsParent, ParentID: c.ParentID, IsSystem: c.IsSystem,
		}
		pos[c.ID] = i
	}

	unresolved := 0
	for _, t := range ts {
		if !InMonth(t.Date, year, month) {
			continue
		}
		i, ok := pos[t.CategoryID]
		if !ok {
			unresolved++
			continue
		}
		sums[i].addDirect(t)
		if pid := sums[i].ParentID; pid != "" {
			if j, ok := pos[pid]; ok {
				sums[j].addAmounts(t)
			}
		}
	}

	finish(sums)
	return sums, unresolved
}

// AggregateByTag groups by tag id. A transaction contributes to every tag
// group it carries; unknown tag references are dropped and counted.
func AggregateByTag(ts []Transaction, lk Lookups, year, month int) ([]Summary, int) {
	sums := make([]Summary, len(lk.Tags))
	pos := make(map[string]int, len(lk.Tags))
	for i, tg := range lk.Tags {
		sums[i] = Summary{
			ID: tg.ID, Name: tg.Name, Icon: tg.Icon, Color: tg.Color, BgColor: tg.BgColor,
			IsSystem: tg.IsSystem,
		}
		pos[tg.ID] = i
	}

	unresolved := 0
	for _, t := range ts {
		if !InMonth(t.Date, year, month) {
			continue
		}
		for _, id := range t.TagIDs {
			i, ok := pos[id]
			if !ok {
				unresolved++
				continue
			}
			sums[i].addDirect(t)
		}
	}

	finish(sums)
	return sums, unresolved
}

// AggregateByPerson groups by counterparty. Transactions without a person
// are simply not part of this dimension.
func AggregateByPerson(ts []Transaction, lk Lookups, year, month int) ([]Summary, int) {
	sums := make([]Summary, len(lk.People))
	pos := make(map[string]int, len(lk.People))
	for i, p := range lk.People {
		sums[i] = Summary{ID: p.ID, Name: p.Name, Icon: p.Avatar}
		pos[p.ID] = i
	}

	unresolved := 0
	for _, t := range ts {
		if !InMonth(t.Date, year, month) || t.PersonID == "" {
			continue
		}
		i, ok := pos[t.PersonID]
		if !ok {
			unresolved++
			continue
		}
		sums[i].addDirect(t)
	}

	finish(sums)
	return sums, unresolved
}

// signedCents derives the signed contribution from the transaction type.
// Transfers move money between own accounts and are net-neutral.
func signedCents(t Transaction) int64 {
	switch t.Type {
	case Income:
		return t.Amount.Cents
	case Expense:
		return -t.Amount.Cents
	default:
		return 0
	}
}

// addAmounts accumulates only the sums; used for parent roll-up.
func (s *Summary) addAmounts(t Transaction) {
	s.TotalCents += signedCents(t)
	switch t.Type {
	case Expense:
		s.ExpenseCents += t.Amount.Cents
	case Income:
		s.IncomeCents += t.Amount.Cents
	case Transfer:
		s.TransferCents += t.Amount.Cents
	}
}

// addDirect accumulates sums, counts and extremes for a transaction that
// belongs to the group itself.
func (s *Summary) addDirect(t Transaction) {
	s.addAmounts(t)
	if s.TotalCount == 0 || t.Amount.Cents < s.LowestCents {
		s.LowestCents = t.Amount.Cents
	}
	if t.Amount.Cents > s.HighestCents {
		s.HighestCents = t.Amount.Cents
	}
	s.TotalCount++
	switch t.Type {
	case Expense:
		s.ExpenseCount++
	case Income:
		s.IncomeCount++
	case Transfer:
		s.TransferCount++
	}
}

func finish(sums []Summary) {
	for i := range sums {
		if sums[i].TotalCount > 0 {
			sums[i].AverageCents = sums[i].TotalCents / int64(sums[i].TotalCount)
		}
	}
}
