// File: sched/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Scheduler: spawn, tick, join. Strict FIFO across one run queue, no
// priorities, no preemption mid-poll.

package sched

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/heap"
)

// TaskStorageBytes is the heap charge of one task record.
const TaskStorageBytes = 128

// Scheduler is the single-threaded cooperative executor.
type Scheduler struct {
	rq   *runQueue
	heap *heap.Heap

	spawned   atomic.Uint64
	completed atomic.Uint64
	errored   atomic.Uint64
	polls     atomic.Uint64
	ticks     atomic.Uint64
}

// New creates a scheduler whose task storage is charged to h.
func New(h *heap.Heap) *Scheduler {
	return &Scheduler{rq: newRunQueue(), heap: h}
}

// Spawn allocates a task record for p and enqueues it for its first poll.
// It suspends if the heap cannot serve the storage charge yet.
func (s *Scheduler) Spawn(ctx context.Context, p Pollable) (*JoinHandle, error) {
	if p == nil {
		return nil, api.ErrInvalidArgument
	}
	alloc, err := s.heap.Alloc(ctx, TaskStorageBytes)
	if err != nil {
		return nil, err
	}

	t := &task{sched: s, comp: p, alloc: alloc}
	t.refs.Store(1) // join handle share
	t.queued.Store(true)
	t.ref() // run-queue share
	s.rq.push(t)
	s.spawned.Add(1)
	return &JoinHandle{t: t}, nil
}

// Tick drains the run queue once: every task enqueued before the tick
// began is polled exactly once. Tasks that wake again mid-tick (or wake
// themselves) are deferred to the next tick. Returns the number of polls
// performed.
func (s *Scheduler) Tick() int {
	s.ticks.Add(1)
	budget := int(s.rq.length.Load())
	polled := 0

	for i := 0; i < budget; i++ {
		t := s.rq.pop()
		if t == nil {
			break
		}
		// Clear the queued flag before polling so wakes arriving during
		// the poll re-enqueue instead of being lost.
		t.queued.Store(false)

		if !t.dead.Load() && Status(t.status.Load()) == StatusPending {
			out, done, err := t.comp.Poll(&Waker{t: t})
			s.polls.Add(1)
			polled++
			if done {
				// The output replaces the computation in place.
				t.comp = nil
				t.out, t.err = out, err
				if err != nil {
					t.status.Store(uint32(StatusErrored))
					s.errored.Add(1)
				} else {
					t.status.Store(uint32(StatusComplete))
					s.completed.Add(1)
				}
				t.done.Wake()
			}
		}
		t.unref() // run-queue share
	}
	return polled
}

// Pending reports the number of tasks currently enqueued.
func (s *Scheduler) Pending() int {
	return int(s.rq.length.Load())
}

// Stats returns basic scheduler metrics.
func (s *Scheduler) Stats() map[string]uint64 {
	return map[string]uint64{
		"spawned":   s.spawned.Load(),
		"completed": s.completed.Load(),
		"errored":   s.errored.Load(),
		"polls":     s.polls.Load(),
		"ticks":     s.ticks.Load(),
	}
}

// JoinHandle observes and owns one task. Dropping it releases the
// handle's ownership share; if that was the last share the task record is
// destroyed and its storage charge returned (cancellation for tasks that
// are not enqueued anywhere).
type JoinHandle struct {
	t       *task
	dropped atomic.Bool
}

// Status returns the task's current lifecycle state.
func (j *JoinHandle) Status() Status {
	return Status(j.t.status.Load())
}

// Wait suspends until the task reaches a terminal state, then returns its
// output or error.
func (j *JoinHandle) Wait(ctx context.Context) (any, error) {
	for {
		w := j.t.done.Register()
		switch Status(j.t.status.Load()) {
		case StatusComplete:
			w.Cancel()
			return j.t.out, nil
		case StatusErrored:
			w.Cancel()
			return nil, j.t.err
		}
		err := w.Await(ctx)
		if err == api.ErrClosed {
			// The last ownership share was released before completion.
			if st := Status(j.t.status.Load()); st == StatusPending {
				return nil, api.ErrClosed
			}
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// Drop releases the handle's ownership share. Idempotent.
func (j *JoinHandle) Drop() {
	if j.dropped.CompareAndSwap(false, true) {
		j.t.unref()
	}
}
