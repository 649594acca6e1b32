// File: sched/task.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The heap-charged task record and its explicit reference counting. A
// task is owned jointly by its JoinHandle and by the run queue while
// enqueued; the holder performing the final release destroys the record
// and returns its storage charge to the kernel heap.

package sched

import (
	"sync/atomic"

	"github.com/momentics/microkern/heap"
	"github.com/momentics/microkern/wait"
)

// Status is the lifecycle state of a task.
type Status uint32

const (
	// StatusPending: not yet complete; may or may not be enqueued.
	StatusPending Status = iota
	// StatusComplete: finished with an output. Terminal.
	StatusComplete
	// StatusErrored: finished with an error, or canceled. Terminal.
	StatusErrored
)

// Pollable is one cooperative unit of work.
//
// Poll either completes (done=true, with an output or an error) or
// suspends (done=false). A suspending poll must first hand w to whatever
// will eventually produce progress — a wait primitive subscription or a
// stored handle — otherwise the task is never polled again.
type Pollable interface {
	Poll(w *Waker) (out any, done bool, err error)
}

// PollFunc adapts a function to Pollable.
type PollFunc func(w *Waker) (any, bool, error)

// Poll implements Pollable.
func (f PollFunc) Poll(w *Waker) (any, bool, error) { return f(w) }

// task is the heap-resident record. The computation and its output are
// mutually exclusive, keyed by status: comp is live while Pending, out/err
// after completion.
type task struct {
	next atomic.Pointer[task] // intrusive run-queue link

	refs   atomic.Int32
	status atomic.Uint32
	queued atomic.Bool
	dead   atomic.Bool

	sched *Scheduler
	comp  Pollable
	out   any
	err   error

	done  wait.Cell // join waiters
	alloc *heap.Allocation
}

func (t *task) ref() {
	t.refs.Add(1)
}

// refIfLive takes a share only while the count is still nonzero. Wakers
// use this instead of ref: a wake racing the final unref must not
// resurrect a record whose destruction has already begun.
func (t *task) refIfLive() bool {
	for {
		n := t.refs.Load()
		if n <= 0 {
			return false
		}
		if t.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// unref releases one ownership share; the last share destroys the record.
func (t *task) unref() {
	if t.refs.Add(-1) != 0 {
		return
	}
	t.dead.Store(true)
	// Destroy whichever member is live for the current status, then
	// return the storage charge.
	t.comp = nil
	t.out = nil
	t.done.Close()
	t.alloc.Release()
}

// Waker re-enqueues its task onto the run queue. Any holder may call Wake
// from any goroutine or ISR-context; duplicate wakes while the task is
// already queued collapse into one poll.
type Waker struct {
	t *task
}

// Clone returns another wake handle for the same task. Handles are cheap;
// the task record outlives them all regardless (storage lifetime is owned
// by the join-handle and run-queue shares).
func (w *Waker) Clone() *Waker { return &Waker{t: w.t} }

// Wake pushes the task onto the run queue if it is pending and not
// already enqueued. Never blocks.
func (w *Waker) Wake() {
	t := w.t
	if t == nil || t.dead.Load() || Status(t.status.Load()) != StatusPending {
		return
	}
	if t.queued.CompareAndSwap(false, true) {
		// Run-queue ownership share, taken only from a live count.
		if !t.refIfLive() {
			return
		}
		t.sched.rq.push(t)
	}
}
