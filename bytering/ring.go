// File: bytering/ring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free BipBuffer core. The producer owns write/last, the consumer
// owns read; each side only reads the other's counters. The in-progress
// flags enforce the one-outstanding-grant-per-kind invariant.

package bytering

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"

	"github.com/momentics/microkern/api"
)

type ring struct {
	buf []byte

	// write is the producer cursor; last is the watermark marking the end
	// of valid data in the upper region while the producer is wrapped.
	write atomic.Int64
	last  atomic.Int64
	_     cpu.CacheLinePad

	// read is the consumer cursor.
	read atomic.Int64
	_    cpu.CacheLinePad

	writeActive atomic.Bool
	readActive  atomic.Bool
}

// grantWrite reserves the largest contiguous free region up to max bytes.
// Returns the start offset and usable size.
func (r *ring) grantWrite(max int) (int, int, error) {
	if max <= 0 {
		return 0, 0, api.ErrInvalidArgument
	}
	if !r.writeActive.CompareAndSwap(false, true) {
		return 0, 0, api.ErrGrantInProgress
	}

	w := int(r.write.Load())
	rd := int(r.read.Load())
	cap := len(r.buf)

	if w < rd {
		// Already wrapped: the only free region is between the cursors,
		// minus one byte to keep full distinguishable from empty.
		sz := rd - w - 1
		if sz <= 0 {
			r.writeActive.Store(false)
			return 0, 0, api.ErrInsufficientSize
		}
		if sz > max {
			sz = max
		}
		return w, sz, nil
	}

	tail := cap - w
	front := rd - 1 // one byte reserved against ambiguity
	if front < 0 {
		front = 0
	}

	// Prefer the tail unless wrapping yields a larger contiguous region.
	if tail >= max || tail >= front {
		if tail <= 0 {
			r.writeActive.Store(false)
			return 0, 0, api.ErrInsufficientSize
		}
		if tail > max {
			tail = max
		}
		return w, tail, nil
	}

	if front > max {
		front = max
	}
	return 0, front, nil
}

// commitWrite publishes used bytes of the grant starting at start.
func (r *ring) commitWrite(start, used int) {
	w := int(r.write.Load())
	if start == 0 && w > 0 && used > 0 {
		// Wrapped to the front: watermark the tail as unused.
		r.last.Store(int64(w))
		r.write.Store(int64(used))
	} else if used > 0 {
		nw := start + used
		r.write.Store(int64(nw))
		if rd := int(r.read.Load()); w >= rd {
			// Not inverted; keep the watermark at or past the cursor.
			r.last.Store(int64(nw))
		}
	}
	r.writeActive.Store(false)
}

// grantRead reserves the longest contiguous occupied region.
func (r *ring) grantRead() (int, int, error) {
	if !r.readActive.CompareAndSwap(false, true) {
		return 0, 0, api.ErrGrantInProgress
	}

	w := int(r.write.Load())
	rd := int(r.read.Load())

	if w < rd {
		// Inverted: valid data runs to the watermark, then wraps to 0.
		last := int(r.last.Load())
		if rd == last {
			rd = 0
			r.read.Store(0)
		} else {
			if last-rd <= 0 {
				r.readActive.Store(false)
				return 0, 0, api.ErrInsufficientSize
			}
			return rd, last - rd, nil
		}
	}

	if w-rd <= 0 {
		r.readActive.Store(false)
		return 0, 0, api.ErrInsufficientSize
	}
	return rd, w - rd, nil
}

// releaseRead frees used bytes from the front of the occupied region.
func (r *ring) releaseRead(start, used int) {
	if used > 0 {
		r.read.Store(int64(start + used))
	}
	r.readActive.Store(false)
}
