package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// RunBounded calls job for every item with at most concurrency calls in
// flight and returns the results in input order. Workers claim the next
// unclaimed index from a shared cursor, so a slow item never holds back
// the items behind it.
//
// A job that returns an error or panics does not stop the batch: onErr
// converts the failure into that item's result.
func RunBounded[T, R any](
	ctx context.Context,
	items []T,
	concurrency int,
	job func(ctx context.Context, item T) (R, error),
	onErr func(item T, err error) R,
) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := min(max(concurrency, 1), len(items))

	var (
		cursor atomic.Int64
		wg     sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1) - 1)
				if i >= len(items) {
					return
				}
				item := items[i]
				var out R
				err := safeCall(func() error {
					var jobErr error
					out, jobErr = job(ctx, item)
					return jobErr
				})
				if err != nil {
					out = onErr(item, err)
				}
				results[i] = out
			}
		}()
	}
	wg.Wait()
	return results
}
