package pipeline

import (
	"context"
	"sync"
)

// Result holds the outcome of one task. Exactly one of Value or Err is
// meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// Run executes tasks with at most limit running concurrently and returns
// their results in task order. Every task settles: an error is recorded in
// its slot and never interrupts the others. Tasks that have not started when
// ctx is cancelled settle with ctx.Err().
func Run[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = 1
	}

	results := make([]Result[T], len(tasks))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task func(context.Context) (T, error)) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}
			defer func() { <-sem }()

			results[i].Value, results[i].Err = task(ctx)
		}(i, task)
	}
	wg.Wait()

	return results
}
