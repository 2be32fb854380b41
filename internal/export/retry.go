package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
)

const (
	DefaultRetries    = 2
	DefaultRetryDelay = 10 * time.Second
)

// RetryPolicy repeats a whole run export after a constant delay.
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
}

// WithRetry runs op up to Retries+1 times. A malformed run id is never retried.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op func(ctx context.Context) (T, error)) (T, error) {
	if policy.Retries < 0 {
		policy.Retries = 0
	}
	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := op(ctx)
		if err != nil && serviceerrors.IsMessage(err, messages.InvalidRunID) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}
	notify := func(err error, next time.Duration) {
		logger.Warn("Export attempt failed, retrying", "attempt", attempt, "retry_in", next.String(), "error", err.Error())
	}
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(policy.Delay)),
		backoff.WithMaxTries(uint(policy.Retries+1)),
		backoff.WithNotify(notify),
	)
}
