// Package parallel fans work out over a bounded number of goroutines and
// joins before returning.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is the worker bound used when a non-positive limit is given.
func DefaultLimit() int {
	return runtime.NumCPU()
}

// ForEach calls fn for every item using at most limit concurrent workers.
// A failing item does not stop the others; every item is attempted and
// ForEach returns once all of them have finished. The first error observed
// is returned.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	if limit <= 0 {
		limit = DefaultLimit()
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for _, item := range items {
		g.Go(func() error {
			return fn(ctx, item)
		})
	}
	return g.Wait()
}
