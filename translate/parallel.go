package translate

import (
	"context"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Generic parallel runner
// ---------------------------------------------------------------------------

// runParallelGeneric runs typed tasks with a concurrency limit and an
// optional delay between launches. It returns the first task error; the
// remaining tasks still run.
func runParallelGeneric[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

launch:
	for i, task := range tasks {
		if ctx.Err() != nil {
			break
		}

		// Delay between launching tasks (skip first)
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(delay):
			}
		}

		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				errOnce.Do(func() {
					firstErr = err
				})
			}
		}(task)
	}

	wg.Wait()
	if firstErr == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return firstErr
}

// runSequential runs tasks one at a time, stopping on cancellation.
func runSequential[T any](ctx context.Context, tasks []T, fn func(context.Context, T) error) error {
	var firstErr error
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, task); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
