// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package worker runs pipeline and batch invocations as tasks on a fixed
// pool of goroutines.
//
// # Architecture
//
// [Pool] owns a buffered task queue and N workers pulling from it. Submit
// never blocks: a full queue or a stopped pool resolves the returned
// [Handle] immediately with a sentinel error. Handles are one-shot
// futures; callers either wait on [Handle.Done] or poll with
// [Handle.Poll]. Batch tasks run on the same pool as the chapter tasks
// they spawn, so batch code must poll rather than block on a handle, and
// the pool never shrinks below [MinWorkers].
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// # Configuration

const (
	// MinWorkers keeps a batch task from starving the chapter tasks it
	// spawned on the same pool.
	MinWorkers = 2
	// DefaultWorkers is the pool size when the config leaves it unset.
	DefaultWorkers = 4
	// DefaultQueueSize bounds tasks waiting for a free worker.
	DefaultQueueSize = 64
)

var (
	// ErrQueueFull rejects a submission when every queue slot is taken.
	ErrQueueFull = errors.New("worker: task queue full")
	// ErrPoolClosed rejects submissions after Shutdown has begun.
	ErrPoolClosed = errors.New("worker: pool closed")
)

// Config sizes a pool.
type Config struct {
	Workers   int
	QueueSize int
}

func (config Config) withDefaults() Config {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Workers < MinWorkers {
		config.Workers = MinWorkers
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	return config
}

// # Task Handles

// Task is one unit of work. It receives the pool's base context, which
// cancels when shutdown gives up on draining.
type Task func(context context.Context) (any, error)

// TaskResult carries what a finished task produced.
type TaskResult struct {
	Value any
	Err   error
}

// Handle is a one-shot future for a submitted task.
type Handle struct {
	name   string
	done   chan struct{}
	result TaskResult
}

// Name returns the label the task was submitted under.
func (handle *Handle) Name() string {
	return handle.name
}

// Done returns a channel closed once the task has finished.
func (handle *Handle) Done() <-chan struct{} {
	return handle.done
}

/*
Poll returns the task result without blocking.

Returns:
  - TaskResult: The outcome, zero until the task finishes
  - bool: True once the task has finished
*/
func (handle *Handle) Poll() (TaskResult, bool) {
	select {
	case <-handle.done:
		return handle.result, true
	default:
		return TaskResult{}, false
	}
}

// finish publishes the result. Called exactly once per handle.
func (handle *Handle) finish(result TaskResult) {
	handle.result = result
	close(handle.done)
}

// # Pool

type queued struct {
	run    Task
	handle *Handle
}

// Pool executes submitted tasks on a fixed set of workers.
type Pool struct {
	logger *slog.Logger
	queue  chan queued
	base   context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	workers int
	group   sync.WaitGroup
}

/*
NewPool starts a pool with its workers already running.

Parameters:
  - config: Config (Zero values fall back to defaults; size is clamped
    to at least MinWorkers)
  - logger: *slog.Logger

Returns:
  - *Pool: The running pool
*/
func NewPool(config Config, logger *slog.Logger) *Pool {
	config = config.withDefaults()

	base, cancel := context.WithCancel(context.Background())
	pool := &Pool{
		logger:  logger,
		queue:   make(chan queued, config.QueueSize),
		base:    base,
		cancel:  cancel,
		workers: config.Workers,
	}

	pool.group.Add(config.Workers)
	for index := 0; index < config.Workers; index++ {
		go pool.worker()
	}

	logger.Info("worker_pool_started",
		slog.Int("workers", config.Workers),
		slog.Int("queue_size", config.QueueSize))
	return pool
}

/*
Submit queues one task and returns its handle without blocking.

Description: A full queue or a stopped pool resolves the handle
immediately with ErrQueueFull or ErrPoolClosed so pollers always
terminate.

Parameters:
  - name: string (Label for logs)
  - run: Task

Returns:
  - *Handle: Future for the task outcome, never nil
*/
func (pool *Pool) Submit(name string, run Task) *Handle {
	handle := &Handle{name: name, done: make(chan struct{})}

	pool.mu.RLock()
	defer pool.mu.RUnlock()

	if pool.closed {
		handle.finish(TaskResult{Err: ErrPoolClosed})
		return handle
	}

	select {
	case pool.queue <- queued{run: run, handle: handle}:
	default:
		pool.logger.Warn("worker_queue_full", slog.String("task", name))
		handle.finish(TaskResult{Err: ErrQueueFull})
	}

	return handle
}

/*
Shutdown stops intake and waits for queued and running tasks to finish.

Description: When the context expires first, the pool's base context is
canceled so stuck tasks unwind, and the deadline error is returned.

Parameters:
  - context: context.Context (Bounds the drain)

Returns:
  - error: Context error when the drain deadline was hit
*/
func (pool *Pool) Shutdown(context context.Context) error {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return nil
	}
	pool.closed = true
	close(pool.queue)
	pool.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		pool.group.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		pool.cancel()
		pool.logger.Info("worker_pool_drained")
		return nil
	case <-context.Done():
		pool.cancel()
		pool.logger.Warn("worker_pool_drain_timeout", slog.String("error", context.Err().Error()))
		return context.Err()
	}
}

// Stats reports the pool state for the operational status endpoint.
type Stats struct {
	Workers    int `json:"workers"`
	QueueDepth int `json:"queue_depth"`
}

// Stats returns a snapshot of the pool.
func (pool *Pool) Stats() Stats {
	return Stats{
		Workers:    pool.workers,
		QueueDepth: len(pool.queue),
	}
}

// worker pulls tasks until the queue is closed and drained.
func (pool *Pool) worker() {
	defer pool.group.Done()
	for item := range pool.queue {
		pool.execute(item)
	}
}

// execute runs one task, converting panics into task errors so a bad
// chapter never takes the worker down with it.
func (pool *Pool) execute(item queued) {
	defer func() {
		if cause := recover(); cause != nil {
			pool.logger.Error("worker_task_panicked",
				slog.String("task", item.handle.name),
				slog.Any("panic", cause))
			item.handle.finish(TaskResult{Err: fmt.Errorf("worker: task %q panicked: %v", item.handle.name, cause)})
		}
	}()

	value, err := item.run(pool.base)
	item.handle.finish(TaskResult{Value: value, Err: err})
}
