// File: sched/runqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Intrusive lock-free MPSC run queue (Vyukov's intrusive singly-linked
// list with a stub node). Links live inside the task header, so enqueueing
// a ready task allocates nothing.

package sched

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

type runQueue struct {
	tail atomic.Pointer[task] // producers swap here
	_    cpu.CacheLinePad
	head *task // consumer-owned
	stub task

	length atomic.Int64
}

func newRunQueue() *runQueue {
	q := &runQueue{}
	q.head = &q.stub
	q.tail.Store(&q.stub)
	return q
}

func (q *runQueue) pushNode(t *task) {
	t.next.Store(nil)
	prev := q.tail.Swap(t)
	prev.next.Store(t)
}

// push appends a ready task. Safe from any number of producers, including
// ISR-context callers: a swap and a store, no locks, no loops.
func (q *runQueue) push(t *task) {
	q.pushNode(t)
	q.length.Add(1)
}

// pop removes the oldest task. Single consumer only. A nil return means
// empty, or momentarily inconsistent because a producer was interrupted
// mid-push; either way the consumer simply tries again on its next tick.
func (q *runQueue) pop() *task {
	head := q.head
	next := head.next.Load()

	if head == &q.stub {
		if next == nil {
			return nil
		}
		q.head = next
		head = next
		next = head.next.Load()
	}

	if next != nil {
		q.head = next
		head.next.Store(nil)
		q.length.Add(-1)
		return head
	}

	if head != q.tail.Load() {
		// A producer has swapped tail but not yet linked; retry later.
		return nil
	}

	q.pushNode(&q.stub)
	next = head.next.Load()
	if next != nil {
		q.head = next
		head.next.Store(nil)
		q.length.Add(-1)
		return head
	}
	return nil
}
