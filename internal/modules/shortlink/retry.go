package shortlink

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy is a fixed attempt count with a fixed pause between attempts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// Once is the single-attempt policy used by bulk imports.
var Once = RetryPolicy{Attempts: 1}

func (p RetryPolicy) attempts() int { return max(p.Attempts, 1) }

func (p RetryPolicy) schedule(ctx context.Context) backoff.BackOff {
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(max(p.Backoff, 0)), uint64(p.attempts()-1))
	return backoff.WithContext(b, ctx)
}

// CreateWithRetry calls api.Create until it succeeds or the attempts run out.
// No pause follows the last attempt; a cancelled ctx stops the schedule.
func CreateWithRetry(ctx context.Context, api API, longURL, customCode string, expiresInHours int, policy RetryPolicy, logger *zap.Logger) (*Link, error) {
	attempts := policy.attempts()
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		link    *Link
		attempt int
	)
	op := func() error {
		attempt++
		l, err := api.Create(ctx, longURL, customCode, expiresInHours)
		if err != nil {
			logger.Warn("shortlink attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			return err
		}
		link = l
		return nil
	}
	if err := backoff.Retry(op, policy.schedule(ctx)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("shortlink failed after %d attempts: %w", attempt, err)
	}
	return link, nil
}
