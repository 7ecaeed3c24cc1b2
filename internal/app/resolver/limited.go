package resolver

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"
)

// Limited throttles calls to the next resolver. A zero rate disables it.
type Limited struct {
	next    Resolver
	limiter *rate.Limiter
}

// NewLimited allows perSec resolutions per second with the given burst.
func NewLimited(next Resolver, perSec float64, burst int) *Limited {
	limit := rate.Limit(perSec)
	if perSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Resolve waits for a token, then delegates. A failed wait is marked
// ErrThrottled.
func (l *Limited) Resolve(ctx context.Context, url string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", errors.Mark(errors.Wrap(err, "rate limit wait"), ErrThrottled)
	}
	return l.next.Resolve(ctx, url)
}

// withTimeout bounds each call to next by d. A zero d disables it.
func withTimeout(next Resolver, d time.Duration) Resolver {
	if d <= 0 {
		return next
	}
	return Func(func(ctx context.Context, url string) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		title, err := next.Resolve(callCtx, url)
		if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", errors.Mark(errors.Wrapf(err, "no answer within %s", d), ErrTimedOut)
		}
		return title, err
	})
}
