// Package retrypoll re-issues a command against an eventually-consistent
// backend until the backend reports it applied, up to a bounded number
// of retries with a fixed delay between attempts.
package retrypoll

import (
	"context"
	"time"
)

// Outcome classifies a single attempt of an operation.
type Outcome int

const (
	// Applied means the backend confirmed the command took effect.
	Applied Outcome = iota
	// Pending means the backend accepted the command but has not applied
	// it yet; the operation should be re-issued after a delay.
	Pending
)

const (
	// DefaultRetries is the number of re-issues after the initial attempt.
	DefaultRetries = 5
	// DefaultDelay is the fixed wait between attempts.
	DefaultDelay = 5250 * time.Millisecond
)

// Op issues the command once and classifies the backend's answer. Any
// error terminates the loop immediately; Pending errors are never
// retried past the attempt budget.
type Op func(ctx context.Context) (Outcome, error)

// Do runs op, re-issuing it after delay for every Pending outcome, at
// most retries more times. It returns true when the backend confirmed
// the command, and false (with a nil error) when the attempt budget ran
// out while the backend still reported Pending. The wait between
// attempts honors ctx cancellation.
func Do(ctx context.Context, op Op, retries int, delay time.Duration) (bool, error) {
	for attempt := 0; ; attempt++ {
		outcome, err := op(ctx)
		if err != nil {
			return false, err
		}
		if outcome == Applied {
			return true, nil
		}
		if attempt >= retries {
			return false, nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
}
