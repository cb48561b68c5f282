// Package workerpool implements the indexed parallel traversal described
// in the concurrency model: a fixed pool of size T runs independent units
// over an outer axis, each call receiving the item index and the id of
// the worker running it. Within a worker execution is single-threaded; there are
// no coroutines or suspension points inside the algorithmic kernels.
//
// Built on golang.org/x/sync/errgroup so that a per-worker failure
// aborts the enclosing operation instead of returning a partial result.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Task is the unit of work for one item of the outer axis. workerID
// identifies which of the T goroutines is executing it (useful for
// per-worker scratch buffers, e.g. private heaps that get merged after
// the parallel region).
type Task func(ctx context.Context, index int, workerID int) error

// Run partitions [0, n) across numWorkers goroutines and runs fn for
// every index. If numWorkers <= 0, runtime.GOMAXPROCS(0) is used. The
// first error from any worker cancels the remaining work and is
// returned; partial results are never returned on failure, matching the
// "no retry inside the core" policy.
func Run(ctx context.Context, n int, numWorkers int, fn Task) error {
	if n == 0 {
		return nil
	}
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > n {
		numWorkers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		start := w * chunk
		end := start + chunk
		if start >= n {
			break
		}
		if end > n {
			end = n
		}
		workerID := w
		lo, hi := start, end
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := fn(gctx, i, workerID); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}
