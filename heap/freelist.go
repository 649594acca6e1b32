// File: heap/freelist.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// First-fit free list over arena offsets. All methods require the heap
// guard to be held.

package heap

// freeBlock is one node of the offset-sorted free list.
type freeBlock struct {
	off  int
	size int
	next *freeBlock
}

type freeList struct {
	head *freeBlock
}

// allocate claims the first block of at least size bytes, splitting the
// remainder back into the list. Returns the claimed offset.
func (f *freeList) allocate(size int) (int, bool) {
	var prev *freeBlock
	for b := f.head; b != nil; prev, b = b, b.next {
		if b.size < size {
			continue
		}
		off := b.off
		if b.size == size {
			if prev == nil {
				f.head = b.next
			} else {
				prev.next = b.next
			}
		} else {
			b.off += size
			b.size -= size
		}
		return off, true
	}
	return 0, false
}

// insert returns a region to the list, keeping it offset-sorted and
// coalescing adjacent blocks. Overlap means the caller double-freed or the
// list is corrupt, which is fatal.
func (f *freeList) insert(off, size int) {
	var prev *freeBlock
	b := f.head
	for b != nil && b.off < off {
		prev, b = b, b.next
	}

	if prev != nil && prev.off+prev.size > off {
		panic("heap: free list corruption (overlapping free)")
	}
	if b != nil && off+size > b.off {
		panic("heap: free list corruption (overlapping free)")
	}

	nb := &freeBlock{off: off, size: size, next: b}
	if prev == nil {
		f.head = nb
	} else {
		prev.next = nb
	}

	// Coalesce with successor, then predecessor.
	if nb.next != nil && nb.off+nb.size == nb.next.off {
		nb.size += nb.next.size
		nb.next = nb.next.next
	}
	if prev != nil && prev.off+prev.size == nb.off {
		prev.size += nb.size
		prev.next = nb.next
	}
}
