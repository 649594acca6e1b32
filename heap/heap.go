// File: heap/heap.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Heap is the once-initialized allocator singleton. The guard is a pure
// try-lock: callers that cannot take it never spin or block, they fall
// back to the deferred-free queue (dealloc) or suspend on the wait queue
// (alloc).

package heap

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/isr"
	"github.com/momentics/microkern/queue"
	"github.com/momentics/microkern/wait"
)

const (
	stateUninit uint32 = iota
	stateIdle
	stateBusy
)

// DeferredSlots bounds the deferred-free queue. Overflow is fatal.
const DeferredSlots = 64

// allocAlign is the allocation granularity; requests round up to it.
const allocAlign = 8

type deferredFree struct {
	off  int
	size int
}

// Heap is an async-aware first-fit allocator over a fixed arena.
type Heap struct {
	state atomic.Uint32

	// Guarded by the state try-lock.
	arena []byte
	free  freeList

	// deferred holds frees pushed while the guard was busy; drained at the
	// start of the next successful direct allocation.
	deferred *queue.Bounded[deferredFree]

	// oomWait holds allocators suspended on a busy guard or a full heap.
	oomWait wait.Queue

	// inhibit keeps allocation FIFO-fair after an OOM: no request is served
	// until a free occurs, so small requests cannot starve a large one.
	inhibit atomic.Bool

	freeBytes    atomic.Int64
	allocCount   atomic.Uint64
	deallocCount atomic.Uint64
	oomCount     atomic.Uint64
	deferCount   atomic.Uint64
}

// Stats is a point-in-time snapshot of heap accounting.
type Stats struct {
	TotalBytes    int
	FreeBytes     int
	AllocCount    uint64
	DeallocCount  uint64
	OOMCount      uint64
	DeferredFrees uint64
	LiveAllocs    uint64
}

// New returns an uninitialized heap. Init must be called exactly once
// before any allocation.
func New() *Heap {
	return &Heap{deferred: queue.NewBounded[deferredFree](DeferredSlots)}
}

// Init gives the heap its arena. It fails with api.ErrAlreadyInitialized
// on any call after the first.
func (h *Heap) Init(size int) error {
	if size < allocAlign {
		return api.ErrInvalidArgument
	}
	if !h.state.CompareAndSwap(stateUninit, stateBusy) {
		return api.ErrAlreadyInitialized
	}
	h.arena = make([]byte, size)
	h.free.insert(0, size)
	h.freeBytes.Store(int64(size))
	h.state.Store(stateIdle)
	return nil
}

// lock attempts to take the guard. It never blocks.
func (h *Heap) lock() bool {
	return h.state.CompareAndSwap(stateIdle, stateBusy)
}

func (h *Heap) unlock() {
	h.state.Store(stateIdle)
}

// drainDeferred moves queued frees into the free list. Guard must be held.
func (h *Heap) drainDeferred() {
	for {
		d, ok := h.deferred.Dequeue()
		if !ok {
			return
		}
		h.free.insert(d.off, d.size)
	}
}

// TryAlloc attempts a direct allocation without suspending.
//
// Errors: api.ErrNotInitialized before Init, api.ErrBusy when the guard is
// held, api.ErrOutOfMemory when no region fits (or allocation is inhibited
// after a previous OOM).
func (h *Heap) TryAlloc(size int) (*Allocation, error) {
	if size <= 0 {
		return nil, api.ErrInvalidArgument
	}
	if h.state.Load() == stateUninit {
		return nil, api.ErrNotInitialized
	}
	if h.inhibit.Load() {
		return nil, api.ErrOutOfMemory
	}
	size = (size + allocAlign - 1) &^ (allocAlign - 1)

	if !h.lock() {
		return nil, api.ErrBusy
	}
	h.drainDeferred()
	off, ok := h.free.allocate(size)
	h.unlock()

	if !ok {
		h.inhibit.Store(true)
		h.oomCount.Add(1)
		return nil, api.ErrOutOfMemory
	}
	h.freeBytes.Add(int64(-size))
	h.allocCount.Add(1)
	return &Allocation{h: h, off: off, size: size}, nil
}

// Alloc allocates size bytes, suspending until space (or the guard)
// becomes available. It is woken by any completed deallocation. In
// interrupt context the call never parks; it degrades to TryAlloc and the
// caller gets its synchronous error.
func (h *Heap) Alloc(ctx context.Context, size int) (*Allocation, error) {
	if isr.Active() {
		return h.TryAlloc(size)
	}
	for {
		w := h.oomWait.Register()
		a, err := h.TryAlloc(size)
		switch err {
		case nil:
			w.Cancel()
			return a, nil
		case api.ErrBusy, api.ErrOutOfMemory:
			if err := w.Await(ctx); err != nil {
				return nil, err
			}
		default:
			w.Cancel()
			return nil, err
		}
	}
}

// dealloc returns a region. It always succeeds from the caller's
// perspective: when the guard is busy the pair is queued, and queue
// overflow is fatal by design.
func (h *Heap) dealloc(off, size int) {
	if h.lock() {
		h.free.insert(off, size)
		h.unlock()
	} else {
		if !h.deferred.Enqueue(deferredFree{off: off, size: size}) {
			panic("heap: deferred free queue overflow")
		}
		h.deferCount.Add(1)
	}
	h.freeBytes.Add(int64(size))
	h.deallocCount.Add(1)

	h.inhibit.Store(false)
	h.oomWait.WakeAll()
}

// FreeBytes reports the bytes currently free (including deferred frees not
// yet folded into the free list).
func (h *Heap) FreeBytes() int {
	return int(h.freeBytes.Load())
}

// TotalBytes reports the arena size, or 0 before Init.
func (h *Heap) TotalBytes() int {
	if h.state.Load() == stateUninit {
		return 0
	}
	return len(h.arena)
}

// Stats returns a snapshot of heap accounting.
func (h *Heap) Stats() Stats {
	alloc := h.allocCount.Load()
	dealloc := h.deallocCount.Load()
	return Stats{
		TotalBytes:    h.TotalBytes(),
		FreeBytes:     h.FreeBytes(),
		AllocCount:    alloc,
		DeallocCount:  dealloc,
		OOMCount:      h.oomCount.Load(),
		DeferredFrees: h.deferCount.Load(),
		LiveAllocs:    alloc - dealloc,
	}
}
