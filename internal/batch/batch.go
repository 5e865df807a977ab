// Package batch implements the concurrent batch-dispatch pipeline: it
// partitions an ordered item sequence into fixed-size groups, sends each
// group to a remote processor with bounded parallelism, and reassembles a
// single globally-ordered result sequence regardless of completion order.
package batch

import "errors"

// Common errors returned by the batch pipeline
var (
	// ErrInvalidBatchSize is returned when partitioning with a
	// non-positive batch size.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrMissingIndex is returned when a result record carries no usable
	// sequence index. Silently defaulting the index would corrupt the
	// output ordering, so the whole reassembly fails instead.
	ErrMissingIndex = errors.New("result record is missing its sequence index")
)

// Partition splits items into contiguous groups of at most size elements.
// The groups cover the input exactly once in original order; only the last
// group may be shorter. Returns ErrInvalidBatchSize if size is not
// positive. The returned slices alias the input.
func Partition[T any](items []T, size int) ([][]T, error) {
	if size <= 0 {
		return nil, ErrInvalidBatchSize
	}

	if len(items) == 0 {
		return nil, nil
	}

	groups := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end:end])
	}

	return groups, nil
}
