package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/strongarm/pkg/comparator"
)

// SweepResults executes every options set concurrently, at most
// concurrency at a time. Results are in input order. The first failure
// cancels the remaining runs and is returned alone.
func (r *Runner) SweepResults(ctx context.Context, runs []Options, concurrency int) ([]*Result, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	results := make([]*Result, len(runs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, opts := range runs {
		g.Go(func() error {
			res, err := r.Execute(gctx, opts)
			if err != nil {
				return fmt.Errorf("cell %d (%s): %w", i, opts.Params.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Sweep builds independent cells in parallel.
func (r *Runner) Sweep(ctx context.Context, params []comparator.Params, concurrency int) ([]*Cell, error) {
	runs := make([]Options, len(params))
	for i, p := range params {
		runs[i] = Options{Params: p}
	}
	results, err := r.SweepResults(ctx, runs, concurrency)
	if err != nil {
		return nil, err
	}
	cells := make([]*Cell, len(results))
	for i, res := range results {
		cells[i] = res.Cell
	}
	return cells, nil
}
