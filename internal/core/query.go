package core

import (
	"fmt"
	"sort"
)

// Query filters the transaction list by the combined search term and filter,
// then stable-sorts the survivors. The input slice is never mutated; ties
// keep their original relative order, so output is deterministic for
// identical inputs.
func Query(ts []Transaction, search string, f Filter, s Sort, idx NameIndex) ([]Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}

	out := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		if f.Matches(t, search, idx) {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return s.Less(out[i], out[j], idx)
	})
	return out, nil
}
