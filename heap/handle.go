// File: heap/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Allocation is the single-owner handle to a heap region.

package heap

import "sync/atomic"

// Allocation owns one region of the arena. Exactly one owner exists;
// Release returns the region and invalidates the handle. The bytes must
// not be touched after Release.
type Allocation struct {
	h        *Heap
	off      int
	size     int
	released atomic.Bool
}

// Bytes returns the backing region, or nil after Release.
func (a *Allocation) Bytes() []byte {
	if a.released.Load() {
		return nil
	}
	return a.h.arena[a.off : a.off+a.size]
}

// Size returns the reserved size in bytes (request rounded up to the
// allocation granularity).
func (a *Allocation) Size() int {
	return a.size
}

// Release returns the region to the heap. Safe to call from ISR-style
// contexts: if the guard is busy the free is deferred. Release is
// idempotent; calls past the first are no-ops.
func (a *Allocation) Release() {
	if a == nil || !a.released.CompareAndSwap(false, true) {
		return
	}
	a.h.dealloc(a.off, a.size)
}
