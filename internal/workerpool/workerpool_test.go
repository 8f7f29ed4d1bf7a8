package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitAndAwait(t *testing.T) {
	p := New(4, nil)
	defer p.Shutdown()

	f, err := p.Submit(func() (any, error) { return 42, nil })
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	val, err := f.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if val.(int) != 42 {
		t.Fatalf("expected 42, got %v", val)
	}
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(2, nil)
	p.Shutdown()

	_, err := p.Submit(func() (any, error) { return nil, nil })
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestPanicInJobDoesNotKillWorker(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	f1, _ := p.Submit(func() (any, error) { panic("boom") })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := f1.Await(ctx)
	if err == nil {
		t.Fatal("expected error from panicking job")
	}

	var ran int32
	f2, _ := p.Submit(func() (any, error) {
		atomic.StoreInt32(&ran, 1)
		return nil, nil
	})
	if _, err := f2.Await(ctx); err != nil {
		t.Fatalf("await second job: %v", err)
	}
	if atomic.LoadInt32(&ran) != 1 {
		t.Fatal("worker did not process job after a panic")
	}
}

func TestAwaitTimesOut(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	block := make(chan struct{})
	f, _ := p.Submit(func() (any, error) {
		<-block
		return nil, nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestPendingCount(t *testing.T) {
	p := New(2, nil)
	defer p.Shutdown()

	block := make(chan struct{})
	p.Submit(func() (any, error) { <-block; return nil, nil })
	p.Submit(func() (any, error) { <-block; return nil, nil })
	time.Sleep(20 * time.Millisecond)
	if got := p.Pending(); got != 2 {
		t.Fatalf("expected pending 2, got %d", got)
	}
	close(block)
}

func TestClampsWorkerCount(t *testing.T) {
	p := New(0, nil)
	defer p.Shutdown()
	// indirectly verify it still processes work (clamped to min 2)
	f, _ := p.Submit(func() (any, error) { return "ok", nil })
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := f.Await(ctx); err != nil {
		t.Fatalf("await: %v", err)
	}
}
