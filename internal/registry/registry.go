// Package registry implements the monitor registry: it owns one
// MonitorState per destination, schedules probes via the scheduler onto a
// worker pool, converts ProbeOutcomes into state updates, and emits
// transition events to the push pipeline.
package registry

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/arguslabs/argus-go/internal/monitorstate"
	"github.com/arguslabs/argus-go/internal/probe"
	"github.com/arguslabs/argus-go/internal/scheduler"
	"github.com/arguslabs/argus-go/internal/types"
	"github.com/arguslabs/argus-go/internal/workerpool"
)

// Transition describes a status change observed on one destination.
type Transition struct {
	TestID             string
	DestinationName    string
	GroupName          string
	Previous           types.Status
	Next               types.Status
	ConsecutiveFailures int
}

// TransitionHandler is invoked whenever a destination's status changes.
// Implementations must not block for long: the registry calls it inline
// on the worker that just applied the outcome.
type TransitionHandler func(Transition)

// Entry pairs a destination's state with its group/task bookkeeping.
type Entry struct {
	Group       types.Group
	Destination types.Destination
	State       *monitorstate.State
	TestID      string
	RegKey      string
}

// Registry owns all MonitorStates for a configuration and drives their
// probing via a Scheduler over a bounded worker Pool.
type Registry struct {
	log  *zap.SugaredLogger
	pool *workerpool.Pool
	sch  *scheduler.Scheduler

	entries         []*Entry
	byRegKey        map[string]*Entry
	logStatusEveryN int

	onTransition TransitionHandler

	taskIDs []scheduler.TaskID
	running bool
}

// New builds a Registry for the given groups. poolSize follows:
// if > 0 it is taken as the starting size; if 0 it is auto-computed as
// clamp(max(4, NumCPU), 2, 24). Either way the result is then capped at
// (total_monitors/4)+1 with a floor of 2 (and the pool itself clamps to
// [2, 32]).
func New(groups []types.Group, poolSize, logStatusEveryN int, log *zap.SugaredLogger, onTransition TransitionHandler) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	entries := make([]*Entry, 0)
	byRegKey := make(map[string]*Entry)
	for _, g := range groups {
		for _, d := range g.Destinations {
			e := &Entry{
				Group:       g,
				Destination: d,
				State:       monitorstate.New(d),
				TestID:      types.TestID(g, d),
				RegKey:      types.RegistryKey(g, d),
			}
			entries = append(entries, e)
			byRegKey[e.RegKey] = e
		}
	}

	size := resolvePoolSize(poolSize, len(entries))
	pool := workerpool.New(size, log)
	sch := scheduler.New(pool, log)

	return &Registry{
		log:             log,
		pool:            pool,
		sch:             sch,
		entries:         entries,
		byRegKey:        byRegKey,
		logStatusEveryN: logStatusEveryN,
		onTransition:    onTransition,
	}
}

func resolvePoolSize(configured, monitorCount int) int {
	var size int
	if configured > 0 {
		size = configured
	} else {
		size = runtime.NumCPU()
		if size < 4 {
			size = 4
		}
		if size < 2 {
			size = 2
		}
		if size > 24 {
			size = 24
		}
	}
	if cap := monitorCount/4 + 1; size > cap {
		size = cap
	}
	if size < 2 {
		size = 2
	}
	return size
}

// Entries returns all registered entries, in the order they were built.
func (r *Registry) Entries() []*Entry {
	return r.entries
}

// Start schedules one repeating probe task per destination and starts the
// scheduler driver.
func (r *Registry) Start() {
	r.sch.Start()
	r.running = true
	for _, e := range r.entries {
		entry := e
		id := r.sch.ScheduleRepeating(time.Duration(entry.Destination.IntervalSec)*time.Second, func() {
			r.runProbe(entry)
		})
		r.taskIDs = append(r.taskIDs, id)
	}
}

// Stop cancels all scheduled tasks, stops the scheduler, then shuts down
// the worker pool.
func (r *Registry) Stop() {
	r.running = false
	for _, id := range r.taskIDs {
		r.sch.Cancel(id)
	}
	r.sch.Stop()
	r.pool.Shutdown()
}

// runProbe submits one probe to the pool and awaits it with a timeout of
// destination.timeout_ms + 5000ms.
func (r *Registry) runProbe(e *Entry) {
	if !r.running {
		return
	}

	future, err := r.pool.Submit(func() (any, error) {
		outcome := probe.Dispatch(e.Destination.Test, e.Destination.TimeoutMS)
		return outcome, nil
	})
	if err != nil {
		r.apply(e, timeoutOutcome(e.Destination.TimeoutMS, "probe submission failed: "+err.Error()))
		return
	}

	budget := time.Duration(e.Destination.TimeoutMS)*time.Millisecond + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	val, err := future.Await(ctx)
	switch {
	case err != nil:
		r.apply(e, timeoutOutcome(e.Destination.TimeoutMS, "Test timeout exceeded"))
	default:
		outcome, ok := val.(types.ProbeOutcome)
		if !ok {
			r.apply(e, timeoutOutcome(e.Destination.TimeoutMS, "probe returned no outcome"))
			return
		}
		r.apply(e, outcome)
	}
}

func timeoutOutcome(timeoutMS int, msg string) types.ProbeOutcome {
	return types.ProbeOutcome{
		Success:    false,
		DurationMS: int64(timeoutMS),
		At:         time.Now(),
		Error:      msg,
	}
}

func (r *Registry) apply(e *Entry, outcome types.ProbeOutcome) {
	prev, next := e.State.AddOutcome(outcome)

	if prev != next {
		r.emitTransition(e, prev, next)
		return
	}
	if !outcome.Success {
		r.logThrottledFailure(e)
	}
}

func (r *Registry) emitTransition(e *Entry, prev, next types.Status) {
	r.log.Infow("status transition",
		"test_id", e.TestID, "previous", prev.String(), "next", next.String())
	if r.onTransition == nil {
		return
	}
	r.onTransition(Transition{
		TestID:              e.TestID,
		DestinationName:     e.Destination.Name,
		GroupName:           e.Group.GroupName,
		Previous:            prev,
		Next:                next,
		ConsecutiveFailures: e.State.ConsecutiveFailures(),
	})
}

func (r *Registry) logThrottledFailure(e *Entry) {
	n := e.State.ConsecutiveFailures()
	if n == 1 {
		r.log.Warnw("probe failed", "test_id", e.TestID, "consecutive_failures", n)
		return
	}
	if r.logStatusEveryN == 0 || n%r.logStatusEveryN == 0 {
		r.log.Warnw("probe still failing", "test_id", e.TestID, "consecutive_failures", n)
	}
}

// RestartFailed implements the optional operational hook of: any
// entry in Failure with consecutive_fail > 3*F is force-reset to Ok.
func (r *Registry) RestartFailed() int {
	count := 0
	for _, e := range r.entries {
		if e.State.Status() == types.StatusFailure && e.State.ConsecutiveFailures() > 3*e.Destination.Failure {
			e.State.ResetAll()
			count++
		}
	}
	return count
}

// Healthy reports healthy == running && !pool.IsStopping() &&
// pool.Pending() <= 2*len(entries).
func (r *Registry) Healthy() bool {
	if !r.running || r.pool.IsStopping() {
		return false
	}
	return r.pool.Pending() <= 2*len(r.entries)
}

// Lookup finds an entry by its registry key ("<group>:<destination>").
func (r *Registry) Lookup(regKey string) (*Entry, error) {
	e, ok := r.byRegKey[regKey]
	if !ok {
		return nil, fmt.Errorf("registry: unknown key %q", regKey)
	}
	return e, nil
}
