// File: bytering/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The async layer over the BipBuffer core: producer and consumer halves
// with suspending grant requests. Backing storage is either plain or
// charged to the kernel heap, so bulk channels participate in heap
// accounting like everything else.

package bytering

import (
	"context"
	"sync/atomic"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/heap"
	"github.com/momentics/microkern/isr"
	"github.com/momentics/microkern/wait"
)

type channel struct {
	ring ring

	// commitWait parks the consumer until the producer commits;
	// releaseWait parks the producer until the consumer releases.
	commitWait  wait.Cell
	releaseWait wait.Cell

	closed     atomic.Bool
	prodClosed atomic.Bool
	consClosed atomic.Bool
	alloc      *heap.Allocation
}

// closeHalf tears down one half of the channel. The wait cells close on
// the first half so the peer stops parking, but heap-backed storage is
// returned only after BOTH halves have closed: committed data stays
// drainable (and its region stays charged) until the consumer is done
// with it.
func (ch *channel) closeHalf(half *atomic.Bool) {
	if !half.CompareAndSwap(false, true) {
		return
	}
	if ch.closed.CompareAndSwap(false, true) {
		ch.commitWait.Close()
		ch.releaseWait.Close()
	}
	if ch.prodClosed.Load() && ch.consClosed.Load() {
		// Both halves may observe this condition when they close
		// concurrently; Release is idempotent, so that race is harmless.
		ch.alloc.Release()
	}
}

// New creates an SPSC byte channel with the given capacity.
func New(capacity int) (*Producer, *Consumer) {
	ch := &channel{ring: ring{buf: make([]byte, capacity)}}
	return &Producer{ch: ch}, &Consumer{ch: ch}
}

// NewWithHeap creates an SPSC byte channel whose backing array is
// allocated from (and accounted to) the kernel heap. Closing either half
// returns the region.
func NewWithHeap(ctx context.Context, h *heap.Heap, capacity int) (*Producer, *Consumer, error) {
	a, err := h.Alloc(ctx, capacity)
	if err != nil {
		return nil, nil, err
	}
	ch := &channel{ring: ring{buf: a.Bytes()[:capacity]}, alloc: a}
	return &Producer{ch: ch}, &Consumer{ch: ch}, nil
}

// Producer is the write half. Single producer only.
type Producer struct {
	ch *channel
}

// TryGrant returns the largest contiguous free region up to max bytes,
// failing fast with api.ErrInsufficientSize when none exists or
// api.ErrGrantInProgress when a write grant is already outstanding.
func (p *Producer) TryGrant(max int) (*WriteGrant, error) {
	if p.ch.closed.Load() {
		return nil, api.ErrClosed
	}
	start, sz, err := p.ch.ring.grantWrite(max)
	if err != nil {
		return nil, err
	}
	return &WriteGrant{ch: p.ch, start: start, buf: p.ch.ring.buf[start : start+sz]}, nil
}

// Grant suspends until contiguous space is available (woken by consumer
// releases) and returns a write grant. In interrupt context the call
// never parks; it degrades to TryGrant.
func (p *Producer) Grant(ctx context.Context, max int) (*WriteGrant, error) {
	if isr.Active() {
		return p.TryGrant(max)
	}
	for {
		w := p.ch.releaseWait.Register()
		g, err := p.TryGrant(max)
		if err == nil || err != api.ErrInsufficientSize {
			w.Cancel()
			return g, err
		}
		if err := w.Await(ctx); err != nil {
			return nil, err
		}
	}
}

// Subscribe registers a wake handle fired on the next consumer release.
func (p *Producer) Subscribe(wk api.Waker) {
	p.ch.releaseWait.Subscribe(wk)
}

// Close tears down the write half; the peer observes api.ErrClosed once
// it has drained everything already committed.
func (p *Producer) Close() { p.ch.closeHalf(&p.ch.prodClosed) }

// Consumer is the read half. Single consumer only.
type Consumer struct {
	ch *channel
}

// TryRead returns the longest contiguous occupied region, failing fast
// with api.ErrInsufficientSize when the ring is empty or
// api.ErrGrantInProgress when a read grant is already outstanding.
func (c *Consumer) TryRead() (*ReadGrant, error) {
	start, sz, err := c.ch.ring.grantRead()
	if err != nil {
		if err == api.ErrInsufficientSize && c.ch.closed.Load() {
			return nil, api.ErrClosed
		}
		return nil, err
	}
	return &ReadGrant{ch: c.ch, start: start, buf: c.ch.ring.buf[start : start+sz]}, nil
}

// Read suspends until data is available (woken by producer commits) and
// returns a read grant.
func (c *Consumer) Read(ctx context.Context) (*ReadGrant, error) {
	for {
		w := c.ch.commitWait.Register()
		g, err := c.TryRead()
		if err == nil || err != api.ErrInsufficientSize {
			w.Cancel()
			return g, err
		}
		if err := w.Await(ctx); err != nil {
			return nil, err
		}
	}
}

// Subscribe registers a wake handle fired on the next producer commit.
func (c *Consumer) Subscribe(wk api.Waker) {
	c.ch.commitWait.Subscribe(wk)
}

// Close tears down the read half; the peer observes api.ErrClosed.
func (c *Consumer) Close() { c.ch.closeHalf(&c.ch.consClosed) }
