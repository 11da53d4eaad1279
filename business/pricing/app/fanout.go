package app

import (
	"context"
	"time"
)

// taskResult is one key's outcome from a fanOut call: exactly one of Value
// or Err is meaningful, distinguished by TimedOut/Err being non-nil.
type taskResult[T any] struct {
	Key      string
	Value    T
	Err      error
	TimedOut bool
}

// fanOut runs fn once per key concurrently, each under its own
// context.WithTimeout(ctx, timeout), and joins every result — a timed-out
// or failed task never aborts its siblings (spec.md §4.5, §5, §9
// "Concurrent fan-out with per-call deadlines and failure isolation").
// Results are returned in the same order as keys, matching the ordering
// guarantee of spec.md §4.5/§5.
func fanOut[T any](ctx context.Context, keys []string, timeout time.Duration, fn func(ctx context.Context, key string) (T, error)) []taskResult[T] {
	results := make([]taskResult[T], len(keys))
	done := make(chan int, len(keys))

	for i, key := range keys {
		go func(i int, key string) {
			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			value, err := fn(callCtx, key)

			res := taskResult[T]{Key: key, Value: value, Err: err}
			if callCtx.Err() != nil {
				// Once the deadline has passed the call counts as timed
				// out, whatever fn returned.
				res.TimedOut = true
				if res.Err == nil {
					res.Err = callCtx.Err()
				}
			}
			results[i] = res
			done <- i
		}(i, key)
	}

	for range keys {
		<-done
	}
	return results
}
