// File: heap/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package heap implements the async-aware kernel allocator: a first-fit
// free-list arena behind an atomic try-lock, with a bounded lock-free
// deferred-free queue for callers (including ISR-context callers) that
// cannot take the guard.
//
// Deallocation always succeeds from the caller's perspective: either the
// region goes straight back to the free list, or a (offset, size) pair is
// queued and drained at the start of the next successful direct
// allocation. Every completed deallocation clears the out-of-memory
// inhibit flag and wakes all suspended allocators.
//
// Two conditions are fatal and panic: free-list corruption detected by
// invariant checks, and overflow of the deferred-free queue itself. The
// latter has no backpressure path today; see DESIGN.md before changing it.
package heap
