package store

import (
	"context"
	"errors"
	"time"
)

// maxAttempts bounds the optimistic-concurrency retry loop.
const maxAttempts = 4

// Retry runs fn up to maxAttempts times, backing off between attempts while
// fn keeps failing with ErrConflict. Any other error aborts immediately; an
// exhausted loop surfaces the final ErrConflict to the caller.
func Retry(ctx context.Context, fn func() error) error {
	backoff := 25 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}
