package services

import (
	"context"
	"time"

	"github.com/celestiaorg/vidbatch/internal/errs"
	"github.com/celestiaorg/vidbatch/internal/logger"
)

// Retry defaults
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 60 * time.Second
)

// RetryPolicy bounds how often and how patiently an operation is retried
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the wait before the second attempt.
	Delay time.Duration
	// Backoff multiplies the delay after every retry. Values below 1 keep it constant.
	Backoff float64
}

// RetryController retries transient failures of a single operation
type RetryController struct {
	policy RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetryController creates a RetryController, filling unset policy fields with defaults
func NewRetryController(policy RetryPolicy) *RetryController {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Delay < 0 {
		policy.Delay = DefaultRetryDelay
	}
	if policy.Backoff < 1 {
		policy.Backoff = 1
	}
	return &RetryController{policy: policy, sleep: sleepContext}
}

// Policy returns the effective policy
func (r *RetryController) Policy() RetryPolicy {
	return r.policy
}

// Do runs op until it succeeds, fails permanently or runs out of attempts.
// The last error is returned. Cancelling ctx stops the wait between attempts.
func (r *RetryController) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := r.policy.Delay
	var err error
	for attempt := 1; ; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !errs.IsTransient(err) {
			return err
		}
		if attempt >= r.policy.MaxAttempts {
			logger.Warnf("Giving up after %d attempts: %v", attempt, err)
			return err
		}

		logger.Infof("Attempt %d/%d failed, retrying in %s: %v", attempt, r.policy.MaxAttempts, delay, err)
		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return err
		}
		delay = time.Duration(float64(delay) * r.policy.Backoff)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
