// internal/utils/worker_pool.go
package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrWorkerPoolClosed is returned by Do after Close has been called
var ErrWorkerPoolClosed = errors.New("worker pool is closed")

// Task is a unit of blocking work run on a pool worker
type Task[T any] func(ctx context.Context) (T, error)

type taskResult[T any] struct {
	value T
	err   error
}

type job[T any] struct {
	ctx    context.Context
	task   Task[T]
	result chan taskResult[T]
}

// WorkerPool runs blocking tasks on a fixed number of goroutines.
// Callers submit with Do and receive the task's own result, so
// concurrency of the work is capped at the worker count.
type WorkerPool[T any] struct {
	workerCount int
	jobs        chan job[T]
	quit        chan struct{}
	wg          sync.WaitGroup
	closeOnce   sync.Once
	metrics     *PerformanceMetrics
}

// NewWorkerPool creates and starts a worker pool
func NewWorkerPool[T any](workerCount int) *WorkerPool[T] {
	if workerCount <= 0 {
		workerCount = 1
	}

	wp := &WorkerPool[T]{
		workerCount: workerCount,
		jobs:        make(chan job[T]),
		quit:        make(chan struct{}),
		metrics:     NewPerformanceMetrics(),
	}

	for i := 0; i < workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

// worker is the worker goroutine function
func (wp *WorkerPool[T]) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.quit:
			return
		case j := <-wp.jobs:
			// The submitter may have given up while the job sat in the queue
			if err := j.ctx.Err(); err != nil {
				var zero T
				j.result <- taskResult[T]{value: zero, err: err}
				continue
			}

			start := time.Now()
			value, err := wp.run(j)
			wp.metrics.RecordOperation(time.Since(start), err == nil)
			j.result <- taskResult[T]{value: value, err: err}
		}
	}
}

func (wp *WorkerPool[T]) run(j job[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return j.task(j.ctx)
}

// Do hands task to the next free worker and waits for its result.
// If ctx is done before a worker picks the task up, Do returns ctx.Err().
func (wp *WorkerPool[T]) Do(ctx context.Context, task Task[T]) (T, error) {
	var zero T

	select {
	case <-wp.quit:
		return zero, ErrWorkerPoolClosed
	default:
	}

	// Buffered so a worker never blocks on a caller that already returned
	j := job[T]{ctx: ctx, task: task, result: make(chan taskResult[T], 1)}

	select {
	case wp.jobs <- j:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-wp.quit:
		return zero, ErrWorkerPoolClosed
	}

	res := <-j.result
	return res.value, res.err
}

// Size returns the number of workers
func (wp *WorkerPool[T]) Size() int {
	return wp.workerCount
}

// Close stops the workers after in-flight tasks finish
func (wp *WorkerPool[T]) Close() {
	wp.closeOnce.Do(func() {
		close(wp.quit)
		wp.wg.Wait()
	})
}

// GetMetrics returns performance metrics
func (wp *WorkerPool[T]) GetMetrics() PerformanceSnapshot {
	return wp.metrics.GetSnapshot()
}
