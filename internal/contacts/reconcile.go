package contacts

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// outcome partitions a batch of remote calls by id. Both slices keep the
// submission order of the ids; completion order does not matter.
type outcome struct {
	succeeded []int64
	failed    []int64
	errs      map[int64]error
}

// fanOut runs call for every id concurrently, at most limit at a time when
// limit > 0, and waits for all of them. A failing call never stops the
// others.
func fanOut(ctx context.Context, ids []int64, limit int, call func(context.Context, int64) error) outcome {
	var (
		mu      sync.Mutex
		results = make(map[int64]error, len(ids))
		g       errgroup.Group
	)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, id := range ids {
		g.Go(func() error {
			err := call(ctx, id)
			mu.Lock()
			results[id] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	out := outcome{errs: make(map[int64]error)}
	for _, id := range ids {
		if err := results[id]; err != nil {
			out.failed = append(out.failed, id)
			out.errs[id] = err
			continue
		}
		out.succeeded = append(out.succeeded, id)
	}
	return out
}
