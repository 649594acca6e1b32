// File: sched/scheduler_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/microkern/api"
	"github.com/momentics/microkern/heap"
	"github.com/momentics/microkern/queue"
	"github.com/momentics/microkern/sched"
)

func newSched(t *testing.T) (*sched.Scheduler, *heap.Heap) {
	t.Helper()
	h := heap.New()
	require.NoError(t, h.Init(1 << 16))
	return sched.New(h), h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSchedulerRunsSpawnedTaskOnce(t *testing.T) {
	s, _ := newSched(t)

	polls := 0
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		polls++
		return "done", true, nil
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 1, polls)
	assert.Equal(t, sched.StatusComplete, j.Status())

	out, err := j.Wait(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	j.Drop()
}

func TestSchedulerTaskError(t *testing.T) {
	s, _ := newSched(t)
	boom := errors.New("boom")

	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		return nil, true, boom
	}))
	require.NoError(t, err)

	s.Tick()
	assert.Equal(t, sched.StatusErrored, j.Status())
	_, err = j.Wait(testCtx(t))
	assert.Equal(t, boom, err)
	j.Drop()
}

func TestSchedulerSuspendedTaskRunsAgainOnWake(t *testing.T) {
	s, _ := newSched(t)

	var saved *sched.Waker
	polls := 0
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		polls++
		if polls == 1 {
			saved = w
			return nil, false, nil
		}
		return polls, true, nil
	}))
	require.NoError(t, err)

	// First tick suspends the task; nothing is queued afterwards.
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Tick())

	saved.Wake()
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 2, polls)

	out, err := j.Wait(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	j.Drop()
}

func TestSchedulerDuplicateWakesCollapse(t *testing.T) {
	s, _ := newSched(t)

	var saved *sched.Waker
	polls := 0
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		polls++
		if polls == 1 {
			saved = w
			return nil, false, nil
		}
		return nil, true, nil
	}))
	require.NoError(t, err)
	s.Tick()

	saved.Wake()
	saved.Clone().Wake()
	saved.Wake()
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 2, polls)
	j.Drop()
}

func TestSchedulerFIFOAcrossTasks(t *testing.T) {
	s, _ := newSched(t)

	var order []int
	handles := make([]*sched.JoinHandle, 0, 4)
	for i := 0; i < 4; i++ {
		i := i
		j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
			order = append(order, i)
			return nil, true, nil
		}))
		require.NoError(t, err)
		handles = append(handles, j)
	}

	assert.Equal(t, 4, s.Tick())
	assert.Equal(t, []int{0, 1, 2, 3}, order)
	for _, j := range handles {
		j.Drop()
	}
}

func TestSchedulerWakeMidTickDefersToNextTick(t *testing.T) {
	s, _ := newSched(t)

	polls := 0
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		polls++
		if polls == 1 {
			// Waking yourself mid-poll queues the next poll for the
			// following tick, not the current one.
			w.Wake()
			return nil, false, nil
		}
		return nil, true, nil
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 1, polls)
	assert.Equal(t, 1, s.Pending())
	assert.Equal(t, 1, s.Tick())
	assert.Equal(t, 2, polls)
	j.Drop()
}

func TestSchedulerWaitSuspendsUntilCompletion(t *testing.T) {
	s, h := newSched(t)
	free := h.FreeBytes()

	ch := queue.NewChannel[int](4)
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		v, ok := ch.TryDequeue()
		if !ok {
			ch.SubscribeDequeue(w)
			return nil, false, nil
		}
		return v * 2, true, nil
	}))
	require.NoError(t, err)
	s.Tick()

	got := make(chan any, 1)
	go func() {
		out, err := j.Wait(testCtx(t))
		if err == nil {
			got <- out
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ch.TryEnqueue(21))
	// The enqueue waker re-queued the task; run it.
	for s.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}
	s.Tick()
	assert.Equal(t, 42, <-got)

	// Dropping the last handle returns the storage charge.
	j.Drop()
	assert.Equal(t, free, h.FreeBytes())
}

func TestSchedulerDropCancelsAndReleasesStorage(t *testing.T) {
	s, h := newSched(t)
	free := h.FreeBytes()

	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		return nil, false, nil // suspends forever, never stores the waker
	}))
	require.NoError(t, err)

	j.Drop()
	// The run queue still holds its share; the tick's poll-and-unref is
	// the final release.
	s.Tick()
	assert.Equal(t, free, h.FreeBytes())
}

func TestSchedulerWakeAfterDestructionIsNoOp(t *testing.T) {
	s, h := newSched(t)
	free := h.FreeBytes()

	var saved *sched.Waker
	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		saved = w.Clone()
		return nil, false, nil
	}))
	require.NoError(t, err)
	s.Tick()

	// Final share released; the record is destroyed and its charge
	// returned.
	j.Drop()
	require.Equal(t, free, h.FreeBytes())

	// A stale waker must neither enqueue the task nor take a new share.
	saved.Wake()
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 0, s.Tick())
	assert.Equal(t, free, h.FreeBytes())
}

func TestSchedulerWaitObservesCancellation(t *testing.T) {
	s, _ := newSched(t)

	j, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		return nil, false, nil
	}))
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	j2 := j // second observer not supported; reuse handle from one goroutine only
	go func() {
		_, err := j2.Wait(testCtx(t))
		waitErr <- err
	}()

	time.Sleep(10 * time.Millisecond)
	j.Drop()
	s.Tick() // final unref destroys the record
	assert.Equal(t, api.ErrClosed, <-waitErr)
}

func TestSchedulerStats(t *testing.T) {
	s, _ := newSched(t)

	j1, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		return nil, true, nil
	}))
	require.NoError(t, err)
	j2, err := s.Spawn(testCtx(t), sched.PollFunc(func(w *sched.Waker) (any, bool, error) {
		return nil, true, errors.New("x")
	}))
	require.NoError(t, err)
	s.Tick()

	st := s.Stats()
	assert.Equal(t, uint64(2), st["spawned"])
	assert.Equal(t, uint64(1), st["completed"])
	assert.Equal(t, uint64(1), st["errored"])
	assert.Equal(t, uint64(2), st["polls"])
	j1.Drop()
	j2.Drop()
}
