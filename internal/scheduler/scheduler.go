// Package scheduler implements a min-heap priority scheduler: one-shot and
// repeating tasks ordered by next_run, driven by a single goroutine that
// hands due tasks to a worker pool and applies a fixed-delay retry policy
// on submission failure.
//
// It uses a mutex-guarded heap plus a buffered "wake" channel the driver
// selects on alongside a deadline timer, giving peek-or-wait-with-timeout
// behavior without leaking goroutines blocked on a condition variable.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arguslabs/argus-go/internal/workerpool"
)

const (
	defaultRetryDelay = 10 * time.Second
	defaultRetryMax   = 3
)

// TaskID identifies a scheduled task for cancellation.
type TaskID string

type task struct {
	id           TaskID
	nextRun      time.Time
	interval     time.Duration // 0 = one-shot
	fn           func()
	failureCount int
	index        int // heap index, maintained by container/heap
}

type taskHeap []*task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].nextRun.Before(h[j].nextRun) }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *taskHeap) Push(x any) {
	t := x.(*task)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Scheduler drives tasks from a min-heap onto a worker pool.
type Scheduler struct {
	pool *workerpool.Pool
	log  *zap.SugaredLogger

	retryDelay time.Duration
	retryMax   int

	mu   sync.Mutex
	heap taskHeap
	byID map[TaskID]*task

	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// New builds a Scheduler over the given worker pool. It does not start the
// driver goroutine until Start is called.
func New(pool *workerpool.Pool, log *zap.SugaredLogger) *Scheduler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scheduler{
		pool:       pool,
		log:        log,
		retryDelay: defaultRetryDelay,
		retryMax:   defaultRetryMax,
		byID:       make(map[TaskID]*task),
		wake:       make(chan struct{}, 1),
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ScheduleOnce enqueues fn to run once after delay.
func (s *Scheduler) ScheduleOnce(delay time.Duration, fn func()) TaskID {
	return s.push(time.Now().Add(delay), 0, fn)
}

// ScheduleRepeating enqueues fn to run every interval, first firing after
// one interval.
func (s *Scheduler) ScheduleRepeating(interval time.Duration, fn func()) TaskID {
	return s.push(time.Now().Add(interval), interval, fn)
}

func (s *Scheduler) push(at time.Time, interval time.Duration, fn func()) TaskID {
	id := TaskID(uuid.NewString())
	t := &task{id: id, nextRun: at, interval: interval, fn: fn}

	s.mu.Lock()
	heap.Push(&s.heap, t)
	s.byID[id] = t
	s.mu.Unlock()
	s.signal()
	return id
}

// Cancel removes a pending task. Returns false if the id is unknown (it
// may already have run and, if one-shot, been removed).
func (s *Scheduler) Cancel(id TaskID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, t.index)
	delete(s.byID, id)
	return true
}

// Count returns the number of pending tasks.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// Start launches the driver goroutine. No-op if already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go s.driveLoop(stop, done)
}

// Stop halts the driver goroutine and waits for it to exit. Outstanding
// submitted-but-not-yet-applied jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

func (s *Scheduler) driveLoop(stop, done chan struct{}) {
	defer close(done)
	for {
		s.mu.Lock()
		if len(s.heap) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-stop:
				return
			}
		}
		next := s.heap[0]
		now := time.Now()
		if wait := next.nextRun.Sub(now); wait > 0 {
			s.mu.Unlock()
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-s.wake:
				timer.Stop()
			case <-stop:
				timer.Stop()
				return
			}
			continue
		}
		heap.Pop(&s.heap)
		delete(s.byID, next.id)
		s.mu.Unlock()

		s.dispatch(next)
	}
}

func (s *Scheduler) dispatch(t *task) {
	_, err := s.pool.Submit(func() (any, error) {
		t.fn()
		return nil, nil
	})
	if err != nil {
		s.handleSubmitFailure(t, err)
		return
	}
	if t.interval > 0 {
		t.failureCount = 0
		s.reinsert(t, time.Now().Add(t.interval))
	}
}

func (s *Scheduler) handleSubmitFailure(t *task, err error) {
	t.failureCount++
	if t.failureCount > s.retryMax {
		s.log.Warnw("scheduler: task abandoned after repeated submission failures",
			"task_id", t.id, "failures", t.failureCount, "error", err)
		return
	}
	s.log.Warnw("scheduler: submission failed, retrying",
		"task_id", t.id, "attempt", t.failureCount, "error", err)
	s.reinsert(t, time.Now().Add(s.retryDelay))
}

func (s *Scheduler) reinsert(t *task, at time.Time) {
	t.nextRun = at
	s.mu.Lock()
	heap.Push(&s.heap, t)
	s.byID[t.id] = t
	s.mu.Unlock()
	s.signal()
}
