package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/arguslabs/argus-go/internal/workerpool"
)

func newTestScheduler(t *testing.T) (*Scheduler, *workerpool.Pool) {
	t.Helper()
	pool := workerpool.New(4, nil)
	s := New(pool, nil)
	s.Start()
	t.Cleanup(func() {
		s.Stop()
		pool.Shutdown()
	})
	return s, pool
}

func TestScheduleOnceFiresExactlyOnce(t *testing.T) {
	s, _ := newTestScheduler(t)

	var n int32
	done := make(chan struct{})
	s.ScheduleOnce(10*time.Millisecond, func() {
		atomic.AddInt32(&n, 1)
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("expected 1 execution, got %d", got)
	}
}

func TestScheduleRepeatingFiresMultipleTimes(t *testing.T) {
	s, _ := newTestScheduler(t)

	var n int32
	s.ScheduleRepeating(10*time.Millisecond, func() {
		atomic.AddInt32(&n, 1)
	})

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&n); got < 3 {
		t.Fatalf("expected several executions, got %d", got)
	}
}

func TestCancelPreventsExecution(t *testing.T) {
	s, _ := newTestScheduler(t)

	var n int32
	id := s.ScheduleOnce(50*time.Millisecond, func() {
		atomic.AddInt32(&n, 1)
	})
	if !s.Cancel(id) {
		t.Fatal("expected cancel to succeed")
	}
	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&n); got != 0 {
		t.Fatalf("expected 0 executions after cancel, got %d", got)
	}
}

func TestOrderingEarliestFirst(t *testing.T) {
	s, _ := newTestScheduler(t)

	var order []int
	ch := make(chan int, 3)
	s.ScheduleOnce(30*time.Millisecond, func() { ch <- 3 })
	s.ScheduleOnce(10*time.Millisecond, func() { ch <- 1 })
	s.ScheduleOnce(20*time.Millisecond, func() { ch <- 2 })

	for i := 0; i < 3; i++ {
		select {
		case v := <-ch:
			order = append(order, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for tasks")
		}
	}
	if order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected ascending order, got %v", order)
	}
}

func TestCountReflectsPending(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.ScheduleOnce(time.Hour, func() {})
	s.ScheduleOnce(time.Hour, func() {})
	if got := s.Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}
}
