package services

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds batch fan-out when no limit is configured
const DefaultConcurrency = 4

// runBatch calls fn for every key with at most limit calls in flight.
// Results and errors are returned in key order.
func runBatch[T any](ctx context.Context, limit int, keys []string, fn func(context.Context, string) (T, error)) ([]T, []error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	results := make([]T, len(keys))
	errs := make([]error, len(keys))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = fn(ctx, key)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}
