package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// SendFunc sends one batch to a remote processor and returns its result
// records. Implementations must be safe for concurrent use when
// dispatching with a parallelism factor above one.
type SendFunc[T, R any] func(ctx context.Context, group []T) ([]R, error)

// Dispatch sends every group to the processor, running at most parallel
// sends concurrently; parallel values of one or less dispatch strictly
// sequentially in order. The returned slice holds each group's results at
// the group's own position, whatever order the sends completed in.
//
// A single send failure is fatal to the whole dispatch: the context handed
// to in-flight sends is cancelled, unstarted groups are skipped, and the
// first error is returned. There is no per-group retry at this layer.
func Dispatch[T, R any](ctx context.Context, groups [][]T, send SendFunc[T, R], parallel int) ([][]R, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	if parallel < 1 {
		parallel = 1
	}

	results := make([][]R, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			records, err := send(ctx, group)
			if err != nil {
				return err
			}

			results[i] = records
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
