// File: wait/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Queue is a FIFO multi-waiter notifier: producers blocked on a full
// bounded queue, or allocators blocked on an out-of-memory heap, line up
// here and are woken in registration order.

package wait

import (
	"context"
	"sync"

	eq "github.com/eapache/queue"

	"github.com/momentics/microkern/api"
)

// Queue wakes registrations in FIFO order. Canceled registrations are
// removed lazily when they reach the front.
type Queue struct {
	mu      sync.Mutex
	waiters *eq.Queue
	closed  bool
}

// Register installs a goroutine-blocking waiter at the back of the queue.
func (q *Queue) Register() *Waiter {
	w := newWaiter()
	q.register(w.e)
	return w
}

// Subscribe installs a wake handle at the back of the queue.
func (q *Queue) Subscribe(wk api.Waker) {
	q.register(&entry{waker: wk})
}

func (q *Queue) register(e *entry) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		e.fire(api.ErrClosed)
		return
	}
	if q.waiters == nil {
		q.waiters = eq.New()
	}
	q.waiters.Add(e)
	q.mu.Unlock()
}

// WakeOne wakes the oldest live registration, if any.
func (q *Queue) WakeOne() {
	q.mu.Lock()
	var target *entry
	for q.waiters != nil && q.waiters.Length() > 0 {
		e := q.waiters.Remove().(*entry)
		if e.state.Load() == statePending {
			target = e
			break
		}
	}
	q.mu.Unlock()
	if target != nil {
		// fire can still lose a cancellation race; that only costs the
		// wake, and every blocked path re-registers before sleeping again.
		target.fire(nil)
	}
}

// WakeAll wakes every live registration.
func (q *Queue) WakeAll() {
	q.mu.Lock()
	var batch []*entry
	for q.waiters != nil && q.waiters.Length() > 0 {
		batch = append(batch, q.waiters.Remove().(*entry))
	}
	q.mu.Unlock()
	for _, e := range batch {
		e.fire(nil)
	}
}

// Close fails all current and future registrations with api.ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	var batch []*entry
	for q.waiters != nil && q.waiters.Length() > 0 {
		batch = append(batch, q.waiters.Remove().(*entry))
	}
	q.mu.Unlock()
	for _, e := range batch {
		e.fire(api.ErrClosed)
	}
}

// Wait is the register-then-block convenience form.
func (q *Queue) Wait(ctx context.Context) error {
	return q.Register().Await(ctx)
}
