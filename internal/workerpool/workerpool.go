// Package workerpool drives a DAG's busy-aware iterator with a bounded
// number of concurrent workers, matching spec.md §5's concurrency
// contract: each ready vertex is handed to exactly one worker, and a
// vertex's successors never become ready until that worker calls back to
// report it done.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/pkgplan/internal/dag"
)

// Visit processes one ready vertex. Returning an error cancels every
// other in-flight and still-pending worker via the shared context.
type Visit func(ctx context.Context, uid string, data any) error

// Drive runs visit over every vertex of d using up to `workers` concurrent
// goroutines, in an order consistent with d's topological structure. It
// returns the first error any worker (or Visit call) produced, or nil once
// every vertex has been visited.
func Drive(ctx context.Context, d *dag.DAG, workers int, visit Visit) error {
	if workers <= 0 {
		workers = 1
	}

	it := dag.NewIterator(d, true)
	var mu sync.Mutex
	cond := sync.NewCond(&mu)

	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			// Waking every worker on each state change is wasteful for very
			// wide graphs, but simple and correct; spec.md does not call
			// for more than a reference driver here.
			defer func() {
				mu.Lock()
				cond.Broadcast()
				mu.Unlock()
			}()

			for {
				var uid string
				var data any

				mu.Lock()
				for {
					if err := ctx.Err(); err != nil {
						mu.Unlock()
						return err
					}
					nextUID, nextData, _, err := it.Next()
					if err == dag.ErrDone {
						mu.Unlock()
						return nil
					}
					if err != nil {
						mu.Unlock()
						return err
					}
					if nextUID == "" {
						// Nothing ready right now, but some vertex is Busy:
						// wait for the worker holding it to call Leave.
						cond.Wait()
						continue
					}
					uid, data = nextUID, nextData
					break
				}
				mu.Unlock()

				if err := visit(ctx, uid, data); err != nil {
					return err
				}

				mu.Lock()
				it.Leave(uid)
				cond.Broadcast()
				mu.Unlock()
			}
		})
	}
	return eg.Wait()
}
