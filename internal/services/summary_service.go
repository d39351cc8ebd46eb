package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
)

// Summary dimensions.
const (
	DimensionCategories = "categories"
	DimensionTags       = "tags"
	DimensionPeople     = "people"
)

// ErrUnknownDimension is returned for a dimension outside the known set.
var ErrUnknownDimension = fmt.Errorf("unknown summary dimension")

// MonthSummaries is one dimension's aggregation for a month, plus the
// number of references that pointed at no known lookup entry.
type MonthSummaries struct {
	Summaries  []core.Summary
	Unresolved int
}

// MonthReport bundles all three dimensions for a month.
type MonthReport struct {
	Year       int
	Month      int
	Categories MonthSummaries
	Tags       MonthSummaries
	People     MonthSummaries
}

// SummaryService computes monthly aggregations, memoized per dimension
// and month in an LRU cache.
type SummaryService struct {
	store  backend.Backend
	cache  *cache.LRUCache[MonthSummaries]
	logger *log.Logger
}

func NewSummaryService(store backend.Backend, c *cache.LRUCache[MonthSummaries], logger *log.Logger) *SummaryService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SummaryService{
		store:  store,
		cache:  c,
		logger: logger.WithComponent(log.ComponentSummary),
	}
}

// Month aggregates one dimension for the given month.
func (s *SummaryService) Month(ctx context.Context, dimension string, year, month int) (MonthSummaries, error) {
	key := summaryKey(dimension, year, month)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	ts, err := s.store.ListMonth(ctx, year, month)
	if err != nil {
		return MonthSummaries{}, fmt.Errorf("list month transactions: %w", err)
	}
	lk, err := s.store.Lookups(ctx)
	if err != nil {
		return MonthSummaries{}, fmt.Errorf("load lookups: %w", err)
	}

	var result MonthSummaries
	switch dimension {
	case DimensionCategories:
		result.Summaries, result.Unresolved = core.AggregateByCategory(ts, lk, year, month)
	case DimensionTags:
		result.Summaries, result.Unresolved = core.AggregateByTag(ts, lk, year, month)
	case DimensionPeople:
		result.Summaries, result.Unresolved = core.AggregateByPerson(ts, lk, year, month)
	default:
		return MonthSummaries{}, fmt.Errorf("%w: %s", ErrUnknownDimension, dimension)
	}

	if result.Unresolved > 0 {
		s.logger.WarnContext(ctx, "Summary skipped unresolved references",
			log.FieldDimension, dimension,
			log.FieldYear, year,
			log.FieldMonth, month,
			log.FieldUnresolved, result.Unresolved)
	}

	if s.cache != nil {
		s.cache.Set(key, result)
	}
	return result, nil
}

// Report computes all three dimensions for a month concurrently.
func (s *SummaryService) Report(ctx context.Context, year, month int) (MonthReport, error) {
	report := MonthReport{Year: year, Month: month}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		report.Categories, err = s.Month(ctx, DimensionCategories, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		report.Tags, err = s.Month(ctx, DimensionTags, year, month)
		return err
	})
	g.Go(func() error {
		var err error
		report.People, err = s.Month(ctx, DimensionPeople, year, month)
		return err
	})

	if err := g.Wait(); err != nil {
		return MonthReport{}, err
	}
	return report, nil
}

// InvalidateMonth drops every cached dimension for the month.
func (s *SummaryService) InvalidateMonth(year, month int) {
	if s.cache == nil {
		return
	}
	if n := s.cache.DeletePrefix(monthPrefix(year, month)); n > 0 {
		s.logger.Debug("Invalidated summary cache",
			log.FieldYear, year,
			log.FieldMonth, month,
			"entries", n)
	}
}

func monthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d:", year, month)
}

func summaryKey(dimension string, year, month int) string {
	return monthPrefix(year, month) + dimension
}
