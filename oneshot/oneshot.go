// File: oneshot/oneshot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package oneshot implements the reusable one-shot channel: a single
// producer, single consumer handoff with a depth of one, reusable across
// many request cycles without per-call allocation. Many senders can be
// created over the life of one receiver, but at most one is live at a
// time.
//
// The slot walks a strict state machine:
//
//	Idle -> Waiting (Sender) -> Writing -> Ready (Send)
//	     -> Reading (Receive) -> Idle
//
// A sender dropped while Waiting resets the slot to Idle and wakes a
// suspended receiver, which observes api.ErrNoSender instead of hanging.
package oneshot

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/wait"
)

const (
	// stateIdle: not waiting for anything.
	stateIdle uint32 = iota
	// stateWaiting: a sender exists but has not written yet.
	stateWaiting
	// stateWriting: the sender is writing the value.
	stateWriting
	// stateReady: a value is stored and unclaimed.
	stateReady
	// stateReading: the receiver is claiming the value.
	stateReading
	// stateClosed: the receiver was closed; senders fail permanently.
	stateClosed
)

// Reusable is the persistent consumer side of the channel.
type Reusable[T any] struct {
	state atomic.Uint32
	val   T
	wait  wait.Cell
}

// Sender is a single-use producer handle. It is consumed by Send, or
// abandoned with Drop.
type Sender[T any] struct {
	r    *Reusable[T]
	used atomic.Bool
}

// New returns an idle reusable channel.
func New[T any]() *Reusable[T] {
	return &Reusable[T]{}
}

// Sender creates the single live sender.
//
// If a previous response is still unclaimed (Ready), it is discarded and
// the slot recycled, matching the reuse discipline: a caller asking for a
// new sender has abandoned the previous cycle. If another sender is live,
// api.ErrSenderActive is returned immediately.
func (r *Reusable[T]) Sender() (*Sender[T], error) {
	for {
		if r.state.CompareAndSwap(stateIdle, stateWaiting) {
			return &Sender[T]{r: r}, nil
		}
		switch r.state.Load() {
		case stateReady:
			// Discard the stale response and retry.
			if r.state.CompareAndSwap(stateReady, stateReading) {
				var zero T
				r.val = zero
				r.state.Store(stateIdle)
			}
		case stateWaiting, stateWriting:
			return nil, api.ErrSenderActive
		case stateClosed:
			return nil, api.ErrClosed
		case stateIdle, stateReading:
			// Lost a race; retry.
		}
	}
}

// Receive claims the response, suspending while the sender has not yet
// delivered. It returns api.ErrNoSender when no sender is live (or the
// sender was dropped without sending), and api.ErrClosed after Close.
func (r *Reusable[T]) Receive(ctx context.Context) (T, error) {
	var zero T
	for {
		w := r.wait.Register()
		if r.state.CompareAndSwap(stateReady, stateReading) {
			w.Cancel()
			out := r.val
			r.val = zero
			r.state.Store(stateIdle)
			return out, nil
		}
		switch r.state.Load() {
		case stateWaiting, stateWriting:
			if err := w.Await(ctx); err != nil {
				return zero, err
			}
		case stateIdle:
			w.Cancel()
			return zero, api.ErrNoSender
		case stateClosed:
			w.Cancel()
			return zero, api.ErrClosed
		default:
			// Ready raced ahead of us or a concurrent claim is in
			// progress; retry.
			w.Cancel()
		}
	}
}

// Close permanently closes the receiver. Live and future senders fail
// with api.ErrClosed.
func (r *Reusable[T]) Close() {
	old := r.state.Swap(stateClosed)
	if old == stateReady || old == stateReading {
		var zero T
		r.val = zero
	}
	r.wait.Close()
}

// Send delivers the value and consumes the sender. It fails with
// api.ErrClosed if the receiver was closed, and api.ErrNoSender if the
// sender was already used or dropped.
func (s *Sender[T]) Send(v T) error {
	if !s.used.CompareAndSwap(false, true) {
		return api.ErrNoSender
	}
	if !s.r.state.CompareAndSwap(stateWaiting, stateWriting) {
		if s.r.state.Load() == stateClosed {
			return api.ErrClosed
		}
		return api.ErrNoSender
	}
	s.r.val = v
	if !s.r.state.CompareAndSwap(stateWriting, stateReady) {
		// Closed while writing; the value must not linger.
		var zero T
		s.r.val = zero
		return api.ErrClosed
	}
	s.r.wait.Wake()
	return nil
}

// Drop abandons the sender without sending. A receiver suspended on this
// cycle wakes and observes api.ErrNoSender.
func (s *Sender[T]) Drop() {
	if !s.used.CompareAndSwap(false, true) {
		return
	}
	s.r.state.CompareAndSwap(stateWaiting, stateIdle)
	s.r.wait.Wake()
}
