package repo

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultFanOutLimit bounds FanOut parallelism when no limit is given.
const DefaultFanOutLimit = 4

// FanOut runs fn for every input with at most limit calls in flight and
// returns the results in input order. The first failure cancels the
// remaining calls and is returned once all of them have stopped.
func FanOut[In, Out any](ctx context.Context, inputs []In, limit int, fn func(ctx context.Context, in In) (Out, error)) ([]Out, error) {
	if limit <= 0 {
		limit = DefaultFanOutLimit
	}
	results := make([]Out, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			out, err := fn(ctx, in)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
