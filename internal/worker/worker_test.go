// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package worker_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/worker"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// waitDone fails the test instead of hanging when a handle never resolves.
func waitDone(t *testing.T, handle *worker.Handle) worker.TaskResult {
	t.Helper()
	select {
	case <-handle.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task %q did not finish", handle.Name())
	}
	result, finished := handle.Poll()
	require.True(t, finished)
	return result
}

/*
TestPool_SubmitAndWait verifies the happy path: a submitted task runs and
its handle carries the returned value.
*/
func TestPool_SubmitAndWait(t *testing.T) {
	pool := worker.NewPool(worker.Config{}, testLogger())
	defer pool.Shutdown(context.Background())

	handle := pool.Submit("greet", func(context.Context) (any, error) {
		return "ok", nil
	})
	require.Equal(t, "greet", handle.Name())

	result := waitDone(t, handle)
	require.NoError(t, result.Err)
	assert.Equal(t, "ok", result.Value)
}

/*
TestPool_PollBeforeCompletion verifies Poll is non-blocking and reports
false until the task finishes.
*/
func TestPool_PollBeforeCompletion(t *testing.T) {
	pool := worker.NewPool(worker.Config{}, testLogger())
	defer pool.Shutdown(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	handle := pool.Submit("gated", func(context.Context) (any, error) {
		close(started)
		<-release
		return 42, nil
	})

	<-started
	_, finished := handle.Poll()
	assert.False(t, finished)

	close(release)
	result := waitDone(t, handle)
	require.NoError(t, result.Err)
	assert.Equal(t, 42, result.Value)
}

/*
TestPool_PanicBecomesError verifies a panicking task resolves its handle
with an error instead of killing the worker.
*/
func TestPool_PanicBecomesError(t *testing.T) {
	pool := worker.NewPool(worker.Config{}, testLogger())
	defer pool.Shutdown(context.Background())

	handle := pool.Submit("explodes", func(context.Context) (any, error) {
		panic("boom")
	})

	result := waitDone(t, handle)
	require.Error(t, result.Err)
	assert.ErrorContains(t, result.Err, "panicked")
	assert.ErrorContains(t, result.Err, "boom")

	// The worker that recovered must still take new tasks.
	next := pool.Submit("survivor", func(context.Context) (any, error) {
		return "alive", nil
	})
	result = waitDone(t, next)
	require.NoError(t, result.Err)
	assert.Equal(t, "alive", result.Value)
}

/*
TestPool_QueueFullResolvesImmediately verifies Submit never blocks: once
every worker is busy and the queue is full, the handle resolves with
ErrQueueFull.
*/
func TestPool_QueueFullResolvesImmediately(t *testing.T) {
	pool := worker.NewPool(worker.Config{Workers: 2, QueueSize: 1}, testLogger())
	defer pool.Shutdown(context.Background())

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	blocker := func(context.Context) (any, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}

	first := pool.Submit("busy_1", blocker)
	second := pool.Submit("busy_2", blocker)
	<-started
	<-started

	queuedTask := pool.Submit("queued", func(context.Context) (any, error) {
		return nil, nil
	})

	rejected := pool.Submit("rejected", func(context.Context) (any, error) {
		return nil, nil
	})
	result, finished := rejected.Poll()
	require.True(t, finished)
	assert.ErrorIs(t, result.Err, worker.ErrQueueFull)

	close(release)
	for _, handle := range []*worker.Handle{first, second, queuedTask} {
		waitDone(t, handle)
	}
}

/*
TestPool_ShutdownDrains verifies queued tasks still run during shutdown
and later submissions are refused.
*/
func TestPool_ShutdownDrains(t *testing.T) {
	pool := worker.NewPool(worker.Config{Workers: 2, QueueSize: 8}, testLogger())

	var completed atomic.Int32
	handles := make([]*worker.Handle, 0, 5)
	for index := 0; index < 5; index++ {
		handles = append(handles, pool.Submit("tick", func(context.Context) (any, error) {
			completed.Add(1)
			return nil, nil
		}))
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(5), completed.Load())
	for _, handle := range handles {
		_, finished := handle.Poll()
		assert.True(t, finished)
	}

	late := pool.Submit("late", func(context.Context) (any, error) {
		return nil, nil
	})
	result, finished := late.Poll()
	require.True(t, finished)
	assert.ErrorIs(t, result.Err, worker.ErrPoolClosed)

	// Second shutdown is a no-op.
	require.NoError(t, pool.Shutdown(context.Background()))
}

/*
TestPool_ShutdownDeadlineCancelsTasks verifies a blown drain deadline
cancels the base context so stuck tasks unwind.
*/
func TestPool_ShutdownDeadlineCancelsTasks(t *testing.T) {
	pool := worker.NewPool(worker.Config{Workers: 2, QueueSize: 2}, testLogger())

	started := make(chan struct{})
	handle := pool.Submit("stuck", func(taskContext context.Context) (any, error) {
		close(started)
		<-taskContext.Done()
		return nil, taskContext.Err()
	})
	<-started

	deadline, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := pool.Shutdown(deadline)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	result := waitDone(t, handle)
	assert.ErrorIs(t, result.Err, context.Canceled)
}

/*
TestPool_SizeClamped verifies defaulting and the two-worker floor that
keeps batch tasks from starving their chapter tasks.
*/
func TestPool_SizeClamped(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{name: "default", workers: 0, want: worker.DefaultWorkers},
		{name: "floor_applied", workers: 1, want: worker.MinWorkers},
		{name: "explicit_kept", workers: 6, want: 6},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			pool := worker.NewPool(worker.Config{Workers: test.workers}, testLogger())
			defer pool.Shutdown(context.Background())
			assert.Equal(t, test.want, pool.Stats().Workers)
		})
	}
}
