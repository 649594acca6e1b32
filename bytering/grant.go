// File: bytering/grant.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Write and read grants: live exclusive views into the ring's backing
// array, consumed by Commit / Release.

package bytering

// WriteGrant is an exclusive view of a contiguous free region. The
// producer fills Bytes() and calls Commit with the number of bytes
// actually written; committing releases the grant.
type WriteGrant struct {
	ch    *channel
	start int
	buf   []byte
	done  bool
}

// Bytes returns the writable region.
func (g *WriteGrant) Bytes() []byte {
	return g.buf
}

// Commit publishes exactly used bytes and releases the grant. Committing
// more than the granted size is a caller bug and panics.
func (g *WriteGrant) Commit(used int) {
	if g.done {
		return
	}
	if used < 0 || used > len(g.buf) {
		panic("bytering: commit exceeds grant size")
	}
	g.done = true
	g.ch.ring.commitWrite(g.start, used)
	if used > 0 {
		g.ch.commitWait.Wake()
	}
}

// ReadGrant is an exclusive view of the longest contiguous occupied
// region. The consumer reads Bytes() and calls Release with the number of
// bytes it has consumed; releasing frees them and the grant.
type ReadGrant struct {
	ch    *channel
	start int
	buf   []byte
	done  bool
}

// Bytes returns the readable region.
func (g *ReadGrant) Bytes() []byte {
	return g.buf
}

// Release frees exactly used bytes and releases the grant. Releasing more
// than the granted size is a caller bug and panics.
func (g *ReadGrant) Release(used int) {
	if g.done {
		return
	}
	if used < 0 || used > len(g.buf) {
		panic("bytering: release exceeds grant size")
	}
	g.done = true
	g.ch.ring.releaseRead(g.start, used)
	if used > 0 {
		g.ch.releaseWait.Wake()
	}
}
