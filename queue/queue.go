// Package queue bounds how many chart renders run at once. Requests wait for
// a worker instead of rendering on their own goroutine.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrFull is returned when the backlog stays full for the whole wait window.
	ErrFull = errors.New("render queue full")
	// ErrStopped is returned for jobs submitted before Start or after Stop.
	ErrStopped = errors.New("render queue not running")
)

// Job is one render. ID and Source only label the log line.
type Job struct {
	ID     string
	Source string
	Work   func(context.Context) error
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int    `json:"length"`
	Capacity    int    `json:"capacity"`
	WorkerCount int    `json:"workers"`
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
	Rejected    uint64 `json:"rejected"`
}

type task struct {
	job  Job
	done chan error
}

// Queue is a bounded backlog drained by a fixed worker pool.
type Queue struct {
	tasks       chan task
	workerCount int
	timeout     time.Duration
	running     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
	rejected    uint64
}

// New creates a queue holding up to capacity waiting jobs, run by workerCount
// workers with a per-job timeout. timeout <= 0 disables the deadline.
func New(capacity, workerCount int, timeout time.Duration) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		tasks:       make(chan task, capacity),
		workerCount: workerCount,
		timeout:     timeout,
	}
}

// Start launches the workers; they exit when ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Do queues j and waits for its result. If the backlog is full it retries
// until wait elapses and then returns ErrFull. A done ctx abandons the wait
// but not the job.
func (q *Queue) Do(ctx context.Context, j Job, wait time.Duration) error {
	t := task{job: j, done: make(chan error, 1)}
	if err := q.submit(ctx, t, wait); err != nil {
		if errors.Is(err, ErrFull) {
			atomic.AddUint64(&q.rejected, 1)
			log.Printf("render queue full, rejecting job_source=%s job=%s", j.Source, j.ID)
		}
		return err
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) submit(ctx context.Context, t task, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	interval := 10 * time.Millisecond
	for {
		sent, err := q.trySend(t)
		if err != nil || sent {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrFull
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (q *Queue) trySend(t task) (bool, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return false, ErrStopped
	}
	select {
	case q.tasks <- t:
		return true, nil
	default:
		return false, nil
	}
}

// Stop stops accepting jobs and waits for queued ones to finish until ctx is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	return Stats{
		Length:      len(q.tasks),
		Capacity:    cap(q.tasks),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
		Rejected:    atomic.LoadUint64(&q.rejected),
	}
}

// Healthy reports whether the queue is accepting jobs.
func (q *Queue) Healthy() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.running
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			t.done <- q.run(ctx, t.job)
		}
	}
}

func (q *Queue) run(ctx context.Context, j Job) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.ID, r)
		}
		atomic.AddUint64(&q.processed, 1)
		status := "success"
		if err != nil {
			atomic.AddUint64(&q.failed, 1)
			status = err.Error()
		}
		log.Printf("job_source=%s job=%s duration_ms=%d status=%s", j.Source, j.ID, time.Since(start).Milliseconds(), status)
	}()

	jobCtx, cancel := q.jobContext(ctx)
	defer cancel()
	return j.Work(jobCtx)
}

func (q *Queue) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, q.timeout)
}
