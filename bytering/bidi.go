// File: bytering/bidi.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// BidiHandle packages two independent SPSC byte channels into one duplex
// handle. Drivers receive a handle once, at registration or connect time,
// and thereafter speak only grant/commit/release.

package bytering

import (
	"context"

	"github.com/momentics/microkern/heap"
)

// BidiHandle is one end of a duplex byte channel.
type BidiHandle struct {
	prod *Producer
	cons *Consumer
}

// Producer returns the outgoing half.
func (b *BidiHandle) Producer() *Producer { return b.prod }

// Consumer returns the incoming half.
func (b *BidiHandle) Consumer() *Consumer { return b.cons }

// Split decomposes the handle into its halves.
func (b *BidiHandle) Split() (*Producer, *Consumer) { return b.prod, b.cons }

// Close tears down this end of both directions. Heap-backed storage is
// returned once the peer end closes as well.
func (b *BidiHandle) Close() {
	b.prod.Close()
	b.cons.Close()
}

// NewBidi creates a duplex pair: what one end writes, the other reads.
// capA sizes the a-to-b direction, capB the b-to-a direction.
func NewBidi(capA, capB int) (*BidiHandle, *BidiHandle) {
	aProd, aCons := New(capA)
	bProd, bCons := New(capB)
	a := &BidiHandle{prod: aProd, cons: bCons}
	b := &BidiHandle{prod: bProd, cons: aCons}
	return a, b
}

// NewBidiWithHeap is NewBidi with both backing arrays charged to the
// kernel heap.
func NewBidiWithHeap(ctx context.Context, h *heap.Heap, capA, capB int) (*BidiHandle, *BidiHandle, error) {
	aProd, aCons, err := NewWithHeap(ctx, h, capA)
	if err != nil {
		return nil, nil, err
	}
	bProd, bCons, err := NewWithHeap(ctx, h, capB)
	if err != nil {
		aProd.Close()
		aCons.Close()
		return nil, nil, err
	}
	a := &BidiHandle{prod: aProd, cons: bCons}
	b := &BidiHandle{prod: bProd, cons: aCons}
	return a, b, nil
}
