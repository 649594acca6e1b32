// File: bytering/channel_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package bytering_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/bytering"
	"github.com/momentics/microkern/heap"
	"github.com/momentics/microkern/isr"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestChannelRoundTrip(t *testing.T) {
	prod, cons := bytering.New(64)

	g, err := prod.TryGrant(16)
	require.NoError(t, err)
	n := copy(g.Bytes(), "hello bytering")
	g.Commit(n)

	rg, err := cons.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "hello bytering", string(rg.Bytes()[:n]))
	rg.Release(n)

	_, err = cons.TryRead()
	assert.Equal(t, api.ErrInsufficientSize, err)
}

func TestChannelGrantExclusive(t *testing.T) {
	prod, cons := bytering.New(64)

	g, err := prod.TryGrant(8)
	require.NoError(t, err)
	_, err = prod.TryGrant(8)
	assert.Equal(t, api.ErrGrantInProgress, err)
	g.Commit(8)

	rg, err := cons.TryRead()
	require.NoError(t, err)
	_, err = cons.TryRead()
	assert.Equal(t, api.ErrGrantInProgress, err)
	rg.Release(8)
}

func TestChannelReadSuspendsUntilCommit(t *testing.T) {
	prod, cons := bytering.New(64)

	got := make(chan []byte, 1)
	go func() {
		rg, err := cons.Read(testCtx(t))
		if err != nil {
			got <- nil
			return
		}
		data := append([]byte(nil), rg.Bytes()...)
		rg.Release(len(data))
		got <- data
	}()

	time.Sleep(10 * time.Millisecond)
	g, err := prod.TryGrant(4)
	require.NoError(t, err)
	copy(g.Bytes(), "ping")
	g.Commit(4)

	assert.Equal(t, []byte("ping"), <-got)
}

func TestChannelGrantSuspendsUntilRelease(t *testing.T) {
	prod, cons := bytering.New(8)

	// Occupy the whole ring (minus the separation byte).
	g, err := prod.TryGrant(8)
	require.NoError(t, err)
	g.Commit(8)

	done := make(chan error, 1)
	go func() {
		g, err := prod.Grant(testCtx(t), 4)
		if err == nil {
			g.Commit(0)
		}
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	rg, err := cons.TryRead()
	require.NoError(t, err)
	rg.Release(len(rg.Bytes()))

	require.NoError(t, <-done)
}

func TestChannelGrantNeverParksInInterruptContext(t *testing.T) {
	prod, _ := bytering.New(8)
	g, err := prod.TryGrant(8)
	require.NoError(t, err)
	g.Commit(8)

	isr.Enter()
	defer isr.Exit()
	_, err = prod.Grant(context.Background(), 4)
	assert.Equal(t, api.ErrInsufficientSize, err)
}

func TestChannelClose(t *testing.T) {
	prod, cons := bytering.New(64)

	cons.Close()
	_, err := prod.TryGrant(8)
	assert.Equal(t, api.ErrClosed, err)
	_, err = cons.TryRead()
	assert.Equal(t, api.ErrClosed, err)
}

func TestChannelCloseWakesReader(t *testing.T) {
	prod, cons := bytering.New(64)

	done := make(chan error, 1)
	go func() {
		_, err := cons.Read(testCtx(t))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	prod.Close()
	assert.Equal(t, api.ErrClosed, <-done)
}

func TestChannelHeapBacked(t *testing.T) {
	h := heap.New()
	require.NoError(t, h.Init(1024))
	before := h.FreeBytes()

	prod, cons, err := bytering.NewWithHeap(testCtx(t), h, 256)
	require.NoError(t, err)
	assert.Less(t, h.FreeBytes(), before)

	g, err := prod.TryGrant(8)
	require.NoError(t, err)
	copy(g.Bytes(), "backed")
	g.Commit(6)
	rg, err := cons.TryRead()
	require.NoError(t, err)
	assert.Equal(t, "backed", string(rg.Bytes()))
	rg.Release(6)

	// One half closing keeps the charge; the second close returns it.
	prod.Close()
	assert.Less(t, h.FreeBytes(), before)
	cons.Close()
	assert.Equal(t, before, h.FreeBytes())
}

func TestChannelHeapBackedDrainsAfterProducerClose(t *testing.T) {
	h := heap.New()
	require.NoError(t, h.Init(1024))

	prod, cons, err := bytering.NewWithHeap(testCtx(t), h, 256)
	require.NoError(t, err)

	g, err := prod.TryGrant(16)
	require.NoError(t, err)
	for i := range g.Bytes() {
		g.Bytes()[i] = 'A'
	}
	g.Commit(16)
	prod.Close()

	// The ring's region must stay charged while the consumer can still
	// drain it, so this allocation lands elsewhere in the arena.
	scratch, err := h.TryAlloc(256)
	require.NoError(t, err)
	for i := range scratch.Bytes() {
		scratch.Bytes()[i] = 'X'
	}

	rg, err := cons.TryRead()
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{'A'}, 16), rg.Bytes())
	rg.Release(16)
	scratch.Release()

	cons.Close()
	assert.Equal(t, 1024, h.FreeBytes())
}

func TestChannelCloseIdempotentPerHalf(t *testing.T) {
	h := heap.New()
	require.NoError(t, h.Init(1024))

	prod, cons, err := bytering.NewWithHeap(testCtx(t), h, 256)
	require.NoError(t, err)

	// Repeated closes of the same half must not count as the peer's.
	prod.Close()
	prod.Close()
	assert.Less(t, h.FreeBytes(), 1024)

	cons.Close()
	cons.Close()
	assert.Equal(t, 1024, h.FreeBytes())
}

func TestBidiHandleDuplex(t *testing.T) {
	a, b := bytering.NewBidi(64, 64)
	defer a.Close()
	defer b.Close()

	send := func(t *testing.T, p *bytering.Producer, msg string) {
		t.Helper()
		g, err := p.Grant(testCtx(t), len(msg))
		require.NoError(t, err)
		n := copy(g.Bytes(), msg)
		g.Commit(n)
	}
	recv := func(t *testing.T, c *bytering.Consumer) string {
		t.Helper()
		rg, err := c.Read(testCtx(t))
		require.NoError(t, err)
		out := string(rg.Bytes())
		rg.Release(len(rg.Bytes()))
		return out
	}

	send(t, a.Producer(), "request")
	assert.Equal(t, "request", recv(t, b.Consumer()))
	send(t, b.Producer(), "response")
	assert.Equal(t, "response", recv(t, a.Consumer()))
}

// SPSC pipe: a producer goroutine streams a pattern through a small ring
// while the consumer verifies byte order across many wraps.
func TestChannelStreamAcrossWraps(t *testing.T) {
	prod, cons := bytering.New(32)
	const total = 64 * 1024

	go func() {
		sent := 0
		for sent < total {
			g, err := prod.Grant(testCtx(t), 13)
			if err != nil {
				return
			}
			buf := g.Bytes()
			n := len(buf)
			if sent+n > total {
				n = total - sent
			}
			for i := 0; i < n; i++ {
				buf[i] = byte(sent + i)
			}
			g.Commit(n)
			sent += n
		}
		prod.Close()
	}()

	var out bytes.Buffer
	for out.Len() < total {
		rg, err := cons.Read(testCtx(t))
		if err == api.ErrClosed {
			break
		}
		require.NoError(t, err)
		out.Write(rg.Bytes())
		rg.Release(len(rg.Bytes()))
	}

	require.Equal(t, total, out.Len())
	for i, b := range out.Bytes() {
		if b != byte(i) {
			t.Fatalf("stream corrupted at byte %d", i)
		}
	}
}
