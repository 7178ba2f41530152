package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for backoff behavior.
var (
	lmsRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_retries_total",
		Help: "Total number of rate-limit retry attempts",
	})

	lmsRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lms_retry_backoff_seconds",
		Help:    "Backoff duration applied before rate-limit retries",
		Buckets: []float64{1, 5, 15, 30, 45, 60},
	})

	lmsBackoffExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_backoff_exhausted_total",
		Help: "Total number of requests abandoned after exhausting the backoff budget",
	})
)

// BackoffPolicy describes the linear backoff applied to rate-limited
// requests. Delays run 0, Step, 2*Step, ... up to Max, and the request is
// abandoned once the next delay would exceed Max.
//
// With the defaults that is 0s, 15s, 30s, 45s, 60s: at most five attempts.
type BackoffPolicy struct {
	// Step is added to the delay on every rate-limited response.
	Step time.Duration

	// Max is the backoff budget. A delay beyond Max aborts the request.
	Max time.Duration
}

// DefaultBackoffPolicy returns the standard linear schedule (15s step, 60s cap).
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Step: 15 * time.Second,
		Max:  60 * time.Second,
	}
}

// Next returns the delay for the following attempt after the given delay.
// The second return value is false once the budget is exhausted.
func (p BackoffPolicy) Next(delay time.Duration) (time.Duration, bool) {
	next := delay + p.Step
	if p.Step <= 0 || next > p.Max {
		return 0, false
	}
	return next, true
}

// MaxAttempts returns the bounded attempt count implied by the schedule.
func (p BackoffPolicy) MaxAttempts() int {
	if p.Step <= 0 {
		return 1
	}
	return int(p.Max/p.Step) + 1
}

// waitBackoff suspends for the given delay, honoring context cancellation.
// A zero delay only checks for cancellation.
func waitBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
		default:
			return nil
		}
	}

	lmsRetryBackoffSeconds.Observe(delay.Seconds())

	log.Debug().
		Dur("delay", delay).
		Msg("Waiting before retry")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		log.Warn().
			Dur("delay", delay).
			Msg("Context cancelled during backoff")
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
