// Package resilience retries store writes that fail with transient errors.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// WritePolicy retries one batch insert. Each retry waits twice as long as the
// previous one, capped at MaxWait and shortened by up to a quarter at random
// so concurrent writers do not retry in lockstep.
type WritePolicy struct {
	// Attempts is the total number of tries. Zero or one disables retries.
	Attempts int
	// Backoff is the wait before the first retry.
	Backoff time.Duration
	MaxWait time.Duration
	// Log receives a warning per retry. Nil discards them.
	Log *zap.Logger
}

// StoreWritePolicy is the policy used for run output inserts.
func StoreWritePolicy(log *zap.Logger) WritePolicy {
	return WritePolicy{
		Attempts: 3,
		Backoff:  200 * time.Millisecond,
		MaxWait:  5 * time.Second,
		Log:      log,
	}
}

// Insert calls insert until it succeeds, fails with a non-transient error, or
// runs out of attempts, and returns the row count of the successful call.
// batch names the rows being written in log output.
func (p WritePolicy) Insert(ctx context.Context, batch string, insert func(ctx context.Context) (int64, error)) (int64, error) {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}

	for attempt := 1; ; attempt++ {
		n, err := insert(ctx)
		if err == nil {
			return n, nil
		}
		if attempt >= p.Attempts || ctx.Err() != nil || !IsTransient(err) {
			return 0, err
		}

		wait := p.wait(attempt)
		log.Warn("resilience: retrying store write",
			zap.String("batch", batch),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, err
		case <-timer.C:
		}
	}
}

// wait returns the delay before retry number retry (1-based).
func (p WritePolicy) wait(retry int) time.Duration {
	d := p.Backoff
	for i := 1; i < retry && (p.MaxWait <= 0 || d < p.MaxWait); i++ {
		d *= 2
	}
	if p.MaxWait > 0 && d > p.MaxWait {
		d = p.MaxWait
	}
	if q := int64(d / 4); q > 0 {
		d -= time.Duration(rand.Int64N(q + 1))
	}
	return d
}
