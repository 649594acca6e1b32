// File: retry/retry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package retry implements bounded exponential backoff for operations
// that fail transiently, such as allocation during a memory spike or a
// send into a briefly full service queue.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/momentics/microkern/api"
)

// Policy describes one backoff schedule. The zero value is unusable;
// start from Default.
type Policy struct {
	// Attempts is the maximum number of tries, including the first.
	Attempts int
	// Base is the delay after the first failure.
	Base time.Duration
	// Max caps the per-attempt delay.
	Max time.Duration
	// Multiplier scales the delay after each failure. Values below 1
	// are treated as 2.
	Multiplier float64
}

// Default is a schedule suited to contended in-memory resources:
// 5 tries, 100us doubling to a 5ms cap.
func Default() Policy {
	return Policy{Attempts: 5, Base: 100 * time.Microsecond, Max: 5 * time.Millisecond, Multiplier: 2}
}

// Retryable reports whether err is worth another attempt under this
// package's defaults. Closed endpoints and bad arguments never are.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, api.ErrBusy),
		errors.Is(err, api.ErrQueueFull),
		errors.Is(err, api.ErrQueueEmpty),
		errors.Is(err, api.ErrOutOfMemory),
		errors.Is(err, api.ErrGrantInProgress):
		return true
	}
	return false
}

// Do runs op until it succeeds, fails permanently, or the schedule or
// ctx is exhausted. The last error is returned on give-up.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 2
	}

	delay := p.Base
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil || !Retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		if p.Max > 0 && delay > p.Max {
			delay = p.Max
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * mult)
	}
	return err
}

// Do runs op under the default schedule.
func Do(ctx context.Context, op func() error) error {
	return Default().Do(ctx, op)
}
