package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueRunsJobAndReturnsResult(t *testing.T) {
	q := New(10, 2, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var processed int32
	err := q.Do(ctx, Job{ID: "years", Source: "test", Work: func(ctx context.Context) error {
		atomic.AddInt32(&processed, 1)
		return nil
	}}, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&processed) != 1 {
		t.Fatalf("job not processed")
	}

	boom := errors.New("boom")
	err = q.Do(ctx, Job{ID: "map", Source: "test", Work: func(ctx context.Context) error { return boom }}, time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("expected job error, got %v", err)
	}
	stats := q.Stats()
	if stats.Processed != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestQueueTimeout(t *testing.T) {
	q := New(1, 1, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	err := q.Do(ctx, Job{ID: "slow", Source: "test", Work: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}, time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New(1, 0, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	// With no workers the first job sits in the backlog.
	waitCtx, stopWaiting := context.WithCancel(ctx)
	defer stopWaiting()
	go q.Do(waitCtx, Job{ID: "first", Source: "test", Work: func(ctx context.Context) error { return nil }}, time.Second)

	deadline := time.Now().Add(time.Second)
	for q.Stats().Length == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("first job was never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	err := q.Do(ctx, Job{ID: "second", Source: "test", Work: func(ctx context.Context) error { return nil }}, 50*time.Millisecond)
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if q.Stats().Rejected != 1 {
		t.Fatalf("expected one rejected job, got %+v", q.Stats())
	}
}

func TestQueueRecoversPanics(t *testing.T) {
	q := New(1, 1, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	err := q.Do(ctx, Job{ID: "bad", Source: "test", Work: func(ctx context.Context) error { panic("no data") }}, time.Second)
	if err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
	// The worker survives the panic.
	if err := q.Do(ctx, Job{ID: "good", Source: "test", Work: func(ctx context.Context) error { return nil }}, time.Second); err != nil {
		t.Fatalf("unexpected error after panic: %v", err)
	}
}

func TestQueueNotRunning(t *testing.T) {
	q := New(1, 1, time.Second)
	ctx := context.Background()
	job := Job{ID: "x", Source: "test", Work: func(ctx context.Context) error { return nil }}

	if err := q.Do(ctx, job, 0); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped before Start, got %v", err)
	}

	q.Start(ctx)
	if !q.Healthy() {
		t.Fatalf("expected healthy after Start")
	}
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	q.Stop(stopCtx)
	if q.Healthy() {
		t.Fatalf("expected unhealthy after Stop")
	}
	if err := q.Do(ctx, job, 0); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after Stop, got %v", err)
	}
}
