// Package probe implements the probe executors: one
// Execute(test, timeoutMS) -> ProbeOutcome per TestConfig kind, plus the
// monotonic timing wrapper shared by all of them.
package probe

import (
	"time"

	"github.com/arguslabs/argus-go/internal/types"
)

// Executor runs one probe attempt for a given TestConfig.
type Executor interface {
	Execute(test types.TestConfig, timeoutMS int) types.ProbeOutcome
}

// Dispatch selects and runs the executor matching test.Kind.
func Dispatch(test types.TestConfig, timeoutMS int) types.ProbeOutcome {
	if timeoutMS <= 0 || timeoutMS > 300000 {
		return invalidTimeout()
	}
	switch test.Kind {
	case types.KindPing:
		return PingExecutor{}.Execute(test, timeoutMS)
	case types.KindConnect:
		return ConnectExecutor{}.Execute(test, timeoutMS)
	case types.KindURL:
		return URLExecutor{}.Execute(test, timeoutMS)
	case types.KindCmd:
		return CmdExecutor{}.Execute(test, timeoutMS)
	default:
		return types.ProbeOutcome{Success: false, At: time.Now(), Error: "unknown test kind"}
	}
}

func invalidTimeout() types.ProbeOutcome {
	return types.ProbeOutcome{Success: false, DurationMS: 0, At: time.Now(), Error: "invalid timeout"}
}

// timed runs fn and wraps its (success, error) result into a ProbeOutcome
// with DurationMS measured from entry to return via a monotonic clock.
func timed(fn func() (bool, string)) types.ProbeOutcome {
	start := time.Now()
	success, errMsg := fn()
	elapsed := time.Since(start)
	return types.ProbeOutcome{
		Success:    success,
		DurationMS: elapsed.Milliseconds(),
		At:         time.Now(),
		Error:      errMsg,
	}
}
