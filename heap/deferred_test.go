// File: heap/deferred_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredFreeQueuedWhileGuardBusy(t *testing.T) {
	h := New()
	require.NoError(t, h.Init(256))

	a, err := h.TryAlloc(32)
	require.NoError(t, err)

	// Hold the guard as a concurrent allocation would; the release must
	// land in the deferred queue instead of blocking or being lost.
	require.True(t, h.lock())
	a.Release()
	assert.Equal(t, uint64(1), h.Stats().DeferredFrees)
	// Accounting already includes the queued free.
	assert.Equal(t, 256, h.FreeBytes())
	h.unlock()

	// The next direct allocation drains the queue first, so the arena is
	// fully coalesced and serves a maximal request.
	b, err := h.TryAlloc(256)
	require.NoError(t, err)
	b.Release()
}

func TestDeferredFreeOverflowIsFatal(t *testing.T) {
	h := New()
	require.NoError(t, h.Init(8 * (DeferredSlots + 1)))

	allocs := make([]*Allocation, DeferredSlots+1)
	for i := range allocs {
		a, err := h.TryAlloc(8)
		require.NoError(t, err)
		allocs[i] = a
	}

	require.True(t, h.lock())
	defer h.unlock()
	for i := 0; i < DeferredSlots; i++ {
		allocs[i].Release()
	}
	assert.Equal(t, uint64(DeferredSlots), h.Stats().DeferredFrees)

	// One deferred free past capacity has nowhere to go.
	assert.Panics(t, func() { allocs[DeferredSlots].Release() })
}
