package video

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/celestiaorg/vidbatch/internal/errs"
)

// RateLimited throttles submissions to the wrapped client. Polls pass through.
type RateLimited struct {
	Client
	limiter *rate.Limiter
}

// NewRateLimited allows rps submissions per second with the given burst.
// A non-positive rps disables the limit.
func NewRateLimited(client Client, rps float64, burst int) *RateLimited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{Client: client, limiter: rate.NewLimiter(limit, burst)}
}

// Submit waits for a token, then submits. Invalid requests are rejected without consuming one.
func (r *RateLimited) Submit(ctx context.Context, prompt string, opts Options) (OperationHandle, error) {
	if _, err := checkRequest(prompt, opts); err != nil {
		return OperationHandle{}, err
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return OperationHandle{}, ctx.Err()
		}
		// the next token is past the ctx deadline
		return OperationHandle{}, errs.NewTransportError("submission rate limit", err)
	}
	return r.Client.Submit(ctx, prompt, opts)
}
