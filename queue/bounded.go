// File: queue/bounded.go
// Package queue implements lock-free bounded queues.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded is a fixed-capacity MPMC queue using sequence numbers to fix
// race conditions. Based on the pattern by Dmitry Vyukov for MPMC queues.
// Producers and consumers claim a slot via CAS on an index counter, confirm
// ownership through the slot's sequence number, then advance the sequence
// to hand the slot to the next generation. No slot operation blocks an
// unrelated slot; contention causes bounded retries only.

package queue

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/microkern/api"
)

// Ensure compile-time interface compliance.
var _ api.Ring[any] = (*Bounded[any])(nil)

type slot[T any] struct {
	sequence atomic.Uint64
	data     T
}

// Bounded is a lock-free bounded MPMC queue.
type Bounded[T any] struct {
	head atomic.Uint64
	_    cpu.CacheLinePad // hot/cold separation between the two index counters
	tail atomic.Uint64
	_    cpu.CacheLinePad
	mask  uint64
	slots []slot[T]
}

// NewBounded creates a queue with capacity rounded up to a power of two.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}

	q := &Bounded[T]{
		mask:  uint64(size - 1),
		slots: make([]slot[T], size),
	}
	for i := range q.slots {
		q.slots[i].sequence.Store(uint64(i))
	}
	return q
}

// Enqueue adds an item; returns false if the queue is full.
func (q *Bounded[T]) Enqueue(item T) bool {
	for {
		tail := q.tail.Load()
		s := &q.slots[tail&q.mask]
		seq := s.sequence.Load()
		dif := int64(seq) - int64(tail)

		switch {
		case dif == 0:
			if q.tail.CompareAndSwap(tail, tail+1) {
				s.data = item
				s.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false // full
		default:
			// tail moved, retry
		}
	}
}

// Dequeue removes and returns the oldest item; ok is false if empty.
func (q *Bounded[T]) Dequeue() (item T, ok bool) {
	for {
		head := q.head.Load()
		s := &q.slots[head&q.mask]
		seq := s.sequence.Load()
		dif := int64(seq) - int64(head+1)

		switch {
		case dif == 0:
			if q.head.CompareAndSwap(head, head+1) {
				item = s.data
				var zero T
				s.data = zero
				s.sequence.Store(head + q.mask + 1)
				return item, true
			}
		case dif < 0:
			var zero T
			return zero, false // empty
		default:
			// head moved, retry
		}
	}
}

// Len returns the number of items currently in the queue.
func (q *Bounded[T]) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	if tail < head {
		return 0
	}
	return int(tail - head)
}

// Cap returns the fixed queue capacity.
func (q *Bounded[T]) Cap() int {
	return len(q.slots)
}
