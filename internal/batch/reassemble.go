package batch

import (
	"fmt"
	"sort"
)

// IndexFunc extracts the embedded sequence index from a result record.
// The second return value reports whether the record carried one.
type IndexFunc[R any] func(record R) (int, bool)

// Reassemble merges the per-group result records into one flat sequence
// sorted ascending by each record's embedded sequence index, independent
// of which group finished first. The sort is stable, so records sharing an
// index keep their input order.
//
// A record without a usable index fails the whole reassembly with
// ErrMissingIndex rather than being silently placed at index zero.
func Reassemble[R any](groups [][]R, indexOf IndexFunc[R]) ([]R, error) {
	total := 0
	for _, group := range groups {
		total += len(group)
	}

	merged := make([]R, 0, total)
	for gi, group := range groups {
		for _, record := range group {
			if _, ok := indexOf(record); !ok {
				return nil, fmt.Errorf("%w: group %d", ErrMissingIndex, gi)
			}
			merged = append(merged, record)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, _ := indexOf(merged[i])
		b, _ := indexOf(merged[j])
		return a < b
	})

	return merged, nil
}
