// File: wait/waiter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Shared registration entry used by Cell and Queue.

package wait

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
)

const (
	statePending uint32 = iota
	stateWoken
	stateCanceled
)

// entry is one registration. It is woken at most once.
type entry struct {
	state atomic.Uint32
	waker api.Waker
	err   error
}

// fire transitions the entry to woken and invokes its waker.
// Returns false if the entry was already woken or canceled.
func (e *entry) fire(err error) bool {
	if !e.state.CompareAndSwap(statePending, stateWoken) {
		return false
	}
	e.err = err
	if e.waker != nil {
		e.waker.Wake()
	}
	return true
}

// Waiter is a goroutine-blocking registration on a Cell or Queue.
type Waiter struct {
	e  *entry
	ch chan struct{}
}

func newWaiter() *Waiter {
	w := &Waiter{ch: make(chan struct{}, 1)}
	w.e = &entry{}
	w.e.waker = api.WakerFunc(func() {
		select {
		case w.ch <- struct{}{}:
		default:
		}
	})
	return w
}

// Await blocks until the registration is woken or ctx is done.
// It returns api.ErrClosed if the notifier was closed.
func (w *Waiter) Await(ctx context.Context) error {
	select {
	case <-w.ch:
		return w.e.err
	case <-ctx.Done():
		if !w.e.state.CompareAndSwap(statePending, stateCanceled) {
			// A wake raced the cancellation; wait for its signal so the
			// entry's error is visible, then honor the wake.
			<-w.ch
			return w.e.err
		}
		return ctx.Err()
	}
}

// Cancel withdraws a registration that is no longer needed.
func (w *Waiter) Cancel() {
	w.e.state.CompareAndSwap(statePending, stateCanceled)
}
