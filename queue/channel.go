// File: queue/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Channel is the typed message conduit of the substrate: a Bounded ring
// plus wait primitives, split into a cloneable Producer half and a single
// Consumer half. Synchronous forms never block; suspending forms park
// until the peer side makes progress or the context ends.
//
// A closed channel refuses new enqueues but lets the consumer drain
// everything already queued.

package queue

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/isr"
	"github.com/momentics/microkern/wait"
)

// Channel is a bounded typed MPMC message queue with suspension support.
type Channel[T any] struct {
	q *Bounded[T]

	// consWait holds the (single) consumer while the queue is empty;
	// prodWait lines up producers while the queue is full.
	consWait wait.Cell
	prodWait wait.Queue

	closed atomic.Bool
}

// NewChannel creates a channel with capacity rounded up to a power of two.
func NewChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{q: NewBounded[T](capacity)}
}

// TryEnqueue adds item without blocking. It returns api.ErrQueueFull when
// no slot is free and api.ErrClosed after Close; the caller keeps the item.
func (c *Channel[T]) TryEnqueue(item T) error {
	if c.closed.Load() {
		return api.ErrClosed
	}
	if !c.q.Enqueue(item) {
		return api.ErrQueueFull
	}
	c.consWait.Wake()
	return nil
}

// TryDequeue removes the oldest item without blocking.
//
// The closed flag is deliberately not checked here: draining a closed
// channel must stay possible.
func (c *Channel[T]) TryDequeue() (T, bool) {
	item, ok := c.q.Dequeue()
	if ok {
		c.prodWait.WakeAll()
	}
	return item, ok
}

// Enqueue adds item, suspending while the queue is full. In interrupt
// context the call never parks; it degrades to TryEnqueue.
func (c *Channel[T]) Enqueue(ctx context.Context, item T) error {
	if isr.Active() {
		return c.TryEnqueue(item)
	}
	for {
		w := c.prodWait.Register()
		err := c.TryEnqueue(item)
		if err == nil || err == api.ErrClosed {
			w.Cancel()
			return err
		}
		if err := w.Await(ctx); err != nil {
			return err
		}
	}
}

// Dequeue removes the oldest item, suspending while the queue is empty.
// It returns api.ErrClosed once a closed channel has been fully drained.
func (c *Channel[T]) Dequeue(ctx context.Context) (T, error) {
	for {
		w := c.consWait.Register()
		if item, ok := c.TryDequeue(); ok {
			w.Cancel()
			return item, nil
		}
		if c.closed.Load() {
			// Re-check after the registration so an enqueue racing the
			// close cannot be stranded.
			if item, ok := c.TryDequeue(); ok {
				w.Cancel()
				return item, nil
			}
			w.Cancel()
			var zero T
			return zero, api.ErrClosed
		}
		if err := w.Await(ctx); err != nil {
			var zero T
			return zero, err
		}
	}
}

// SubscribeDequeue registers a wake handle fired on the next enqueue.
// Scheduler tasks use this with TryDequeue in their poll bodies.
func (c *Channel[T]) SubscribeDequeue(wk api.Waker) {
	c.consWait.Subscribe(wk)
}

// SubscribeEnqueue registers a wake handle fired when space frees up.
func (c *Channel[T]) SubscribeEnqueue(wk api.Waker) {
	c.prodWait.Subscribe(wk)
}

// Close marks the channel closed. Queued items remain drainable.
func (c *Channel[T]) Close() {
	if c.closed.CompareAndSwap(false, true) {
		c.consWait.Wake()
		c.prodWait.Close()
	}
}

// Len and Cap report the underlying ring occupancy.
func (c *Channel[T]) Len() int { return c.q.Len() }
func (c *Channel[T]) Cap() int { return c.q.Cap() }

// Split returns the producer and consumer halves of the channel.
func (c *Channel[T]) Split() (*Producer[T], *Consumer[T]) {
	return &Producer[T]{c: c}, &Consumer[T]{c: c}
}

// IntoConsumer returns just the consumer half; the producer can be
// re-derived from it later.
func (c *Channel[T]) IntoConsumer() *Consumer[T] {
	return &Consumer[T]{c: c}
}

// Producer is the enqueue half of a Channel. Producers may be shared and
// cloned freely; the ring is multi-producer.
type Producer[T any] struct {
	c *Channel[T]
}

// TryEnqueue adds item without blocking.
func (p *Producer[T]) TryEnqueue(item T) error { return p.c.TryEnqueue(item) }

// Enqueue adds item, suspending while the queue is full.
func (p *Producer[T]) Enqueue(ctx context.Context, item T) error {
	return p.c.Enqueue(ctx, item)
}

// Subscribe registers a wake handle fired when space frees up.
func (p *Producer[T]) Subscribe(wk api.Waker) { p.c.SubscribeEnqueue(wk) }

// Clone returns another handle to the same channel.
func (p *Producer[T]) Clone() *Producer[T] { return &Producer[T]{c: p.c} }

// Consumer is the dequeue half of a Channel. Exactly one consumer should
// be live per channel; it owns the empty-side wait cell.
type Consumer[T any] struct {
	c *Channel[T]
}

// TryDequeue removes the oldest item without blocking.
func (c *Consumer[T]) TryDequeue() (T, bool) { return c.c.TryDequeue() }

// Dequeue removes the oldest item, suspending while the queue is empty.
func (c *Consumer[T]) Dequeue(ctx context.Context) (T, error) {
	return c.c.Dequeue(ctx)
}

// Subscribe registers a wake handle fired on the next enqueue.
func (c *Consumer[T]) Subscribe(wk api.Waker) { c.c.SubscribeDequeue(wk) }

// Producer derives a producer handle for this consumer's channel.
func (c *Consumer[T]) Producer() *Producer[T] { return &Producer[T]{c: c.c} }

// Close closes the backing channel.
func (c *Consumer[T]) Close() { c.c.Close() }
