// File: wait/cell.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Cell is a single-waiter notification slot: the consumer side of a
// bounded queue, the receiver of a oneshot, or the peer of a byte ring
// registers here while it has nothing to do.

package wait

import (
	"context"
	"sync"

	"github.com/momentics/microkern/api"
)

// Cell holds at most one registration at a time. A wake arriving while
// nothing is registered is latched and consumed by the next registration,
// so wake-then-register does not lose the notification.
type Cell struct {
	mu       sync.Mutex
	slot     *entry
	notified bool
	closed   bool
}

// Register installs a goroutine-blocking waiter. A previously registered
// waiter is displaced and spuriously woken; callers always re-check their
// condition after waking.
func (c *Cell) Register() *Waiter {
	w := newWaiter()
	c.register(w.e)
	return w
}

// Subscribe installs a wake handle (scheduler-task style registration).
func (c *Cell) Subscribe(wk api.Waker) {
	c.register(&entry{waker: wk})
}

func (c *Cell) register(e *entry) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		e.fire(api.ErrClosed)
		return
	}
	if c.notified {
		c.notified = false
		c.mu.Unlock()
		e.fire(nil)
		return
	}
	displaced := c.slot
	c.slot = e
	c.mu.Unlock()
	if displaced != nil {
		displaced.fire(nil)
	}
}

// Wake notifies the registered waiter, or latches the notification for the
// next registration. Safe from any goroutine and from ISR-style callers.
func (c *Cell) Wake() {
	c.mu.Lock()
	e := c.slot
	c.slot = nil
	if e == nil && !c.closed {
		c.notified = true
	}
	c.mu.Unlock()
	if e != nil {
		e.fire(nil)
	}
}

// Close permanently fails the current and all future registrations with
// api.ErrClosed.
func (c *Cell) Close() {
	c.mu.Lock()
	e := c.slot
	c.slot = nil
	c.closed = true
	c.mu.Unlock()
	if e != nil {
		e.fire(api.ErrClosed)
	}
}

// Wait is the register-then-block convenience used where no readiness
// re-check is needed between registration and sleeping.
func (c *Cell) Wait(ctx context.Context) error {
	return c.Register().Await(ctx)
}
