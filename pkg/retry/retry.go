package retry

import (
	"context"
	"fmt"
	"time"

	errs "twcollector/pkg/errors"
	"twcollector/pkg/logger"
)

// Operation is one attempt at fetching a result
type Operation[T any] func(ctx context.Context) (T, error)

// Policy bounds the retries for each retryable error kind.
// Rate limit and network retries are counted separately.
type Policy struct {
	RateLimitBackoff    BackoffStrategy
	MaxRateLimitRetries int

	NetworkBackoff    BackoffStrategy
	MaxNetworkRetries int

	// Wait performs the pause; defaults to Wait
	Wait WaitFunc
	// OnRetry is called before each pause
	OnRetry func(kind errs.Kind, attempt int, err error, delay time.Duration)
	Logger  logger.Logger
	// OmitErrors keeps error text out of the retry log lines
	OmitErrors bool
}

// DefaultPolicy pauses 20s on rate limits (15 times at most) and retries
// network failures immediately (5 times at most).
func DefaultPolicy() *Policy {
	return &Policy{
		RateLimitBackoff:    &ConstantBackoff{Delay: 20 * time.Second},
		MaxRateLimitRetries: 15,
		NetworkBackoff:      &ConstantBackoff{Delay: 0},
		MaxNetworkRetries:   5,
		Wait:                Wait,
		Logger:              logger.NewNopLogger(),
	}
}

// Stats counts the retries performed by one Do call
type Stats struct {
	Attempts        int
	RateLimitPauses int
	NetworkRetries  int
}

// Do runs op until it succeeds, fails with a non-retryable kind, or a retry
// bound is exceeded. Exceeding a bound yields a KindRetryExhausted error that
// wraps the last failure. Cancellation of ctx is returned as ctx.Err().
func Do[T any](ctx context.Context, p *Policy, op Operation[T]) (T, Stats, error) {
	if p == nil {
		p = DefaultPolicy()
	}
	wait := p.Wait
	if wait == nil {
		wait = Wait
	}
	log := p.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var (
		zero  T
		stats Stats
	)

	for {
		if err := ctx.Err(); err != nil {
			return zero, stats, err
		}

		stats.Attempts++
		result, err := op(ctx)
		if err == nil {
			if stats.Attempts > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempts": stats.Attempts,
				})
			}
			return result, stats, nil
		}

		kind := errs.KindOf(err)

		var (
			counter *int
			limit   int
			backoff BackoffStrategy
		)
		switch kind {
		case errs.KindRateLimited:
			counter, limit, backoff = &stats.RateLimitPauses, p.MaxRateLimitRetries, p.RateLimitBackoff
		case errs.KindTransientNetwork:
			counter, limit, backoff = &stats.NetworkRetries, p.MaxNetworkRetries, p.NetworkBackoff
		default:
			return zero, stats, err
		}

		if *counter >= limit {
			fields := map[string]interface{}{
				"kind":    string(kind),
				"retries": limit,
			}
			if !p.OmitErrors {
				fields["last_error"] = err.Error()
			}
			log.ErrorWithFields("max retry attempts exceeded", fields)
			return zero, stats, &errs.Error{
				Kind:    errs.KindRetryExhausted,
				Message: fmt.Sprintf("gave up after %d %s retries: %v", limit, kind, err),
				Err:     err,
			}
		}
		*counter++
		attempt := *counter

		var delay time.Duration
		if backoff != nil {
			delay = backoff.NextDelay(attempt)
		}

		if p.OnRetry != nil {
			p.OnRetry(kind, attempt, err, delay)
		}

		fields := map[string]interface{}{
			"kind":     string(kind),
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		}
		if !p.OmitErrors {
			fields["error"] = err.Error()
		}
		log.WarnWithFields("retrying operation", fields)

		if err := wait(ctx, delay); err != nil {
			return zero, stats, err
		}
	}
}
