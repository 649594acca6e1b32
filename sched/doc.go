// File: sched/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package sched implements the single-threaded cooperative task executor.
// Tasks are heap-charged records polled through their Pollable interface;
// readiness flows through an intrusive lock-free MPSC run queue that any
// producer (another task, a goroutine, an ISR-context caller) may push
// onto via a Waker, but that only the scheduler's Tick drains.
//
// Tick never overlaps with itself: it must be driven from one logical
// thread. Producers of work only enqueue; they never poll.
package sched
