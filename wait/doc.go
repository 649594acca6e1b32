// File: wait/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package wait provides the suspension primitives used by every blocking
// operation in the substrate: Cell, a single-waiter notification slot, and
// Queue, a FIFO multi-waiter notifier.
//
// Both primitives hand out registrations before the caller re-checks its
// readiness condition, which closes the lost-wakeup window between a failed
// synchronous attempt and going to sleep:
//
//	for {
//	    w := notify.Register()
//	    if tryOperation() {
//	        w.Cancel()
//	        return
//	    }
//	    if err := w.Await(ctx); err != nil {
//	        return err
//	    }
//	}
//
// Registrations carry an api.Waker, so scheduler tasks subscribe their wake
// handles directly instead of parking a goroutine.
package wait
