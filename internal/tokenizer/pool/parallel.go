package pool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParallelCount partitions inputs into ceil(N/workers)-sized contiguous
// slices, submits one Job per slice concurrently, and reassembles the
// per-input counts in original order. Equivalent to counting every input
// sequentially, for any partitioning, per the pool's ordering guarantee.
func (p *Pool) ParallelCount(ctx context.Context, tokenizerName string, inputs []string, addSpecials bool, workers int) ([]int, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = 1
	}

	sliceSize := (len(inputs) + workers - 1) / workers
	if sliceSize < 1 {
		sliceSize = 1
	}

	counts := make([]int, len(inputs))
	g, gctx := errgroup.WithContext(ctx)

	for start := 0; start < len(inputs); start += sliceSize {
		start := start
		end := start + sliceSize
		if end > len(inputs) {
			end = len(inputs)
		}
		g.Go(func() error {
			res := p.Submit(gctx, Job{
				TokenizerName: tokenizerName,
				Inputs:        inputs[start:end],
				AddSpecials:   addSpecials,
			})
			if res.Err != nil {
				return fmt.Errorf("tokenizer pool: slice [%d,%d): %w", start, end, res.Err)
			}
			copy(counts[start:end], res.Counts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}
