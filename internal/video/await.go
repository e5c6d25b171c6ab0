package video

import (
	"context"
	"fmt"
	"time"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// Wait defaults
const (
	DefaultMaxWait      = 300 * time.Second
	DefaultPollInterval = 5 * time.Second
)

// PollFunc checks progress once and reports whether the result is final
type PollFunc[T any] func(ctx context.Context) (T, bool, error)

// Await calls poll every interval until it reports done, it fails, ctx ends or
// maxWait passes. Expiry returns the last value with an errs.ErrTimeout.
func Await[T any](ctx context.Context, maxWait, interval time.Duration, poll PollFunc[T]) (T, error) {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		v, done, err := poll(ctx)
		if err != nil || done {
			return v, err
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-deadline.C:
			return v, fmt.Errorf("%w: no result after %s", errs.ErrTimeout, maxWait)
		case <-ticker.C:
		}
	}
}

// AwaitCompletion polls handle until the generation finishes
func AwaitCompletion(ctx context.Context, client Client, handle OperationHandle, maxWait, interval time.Duration) (PollResult, error) {
	return Await(ctx, maxWait, interval, func(ctx context.Context) (PollResult, bool, error) {
		res, err := client.Poll(ctx, handle)
		return res, res.Done, err
	})
}
