package probe

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/arguslabs/argus-go/internal/types"
)

const maxCmdOutputBytes = 4096

// CmdExecutor runs an arbitrary shell command and compares its exit code
// against the configured expectation. Output is captured up
// to a 4KB cap; on signal termination the effective code is 128+signum.
type CmdExecutor struct{}

func (CmdExecutor) Execute(test types.TestConfig, timeoutMS int) types.ProbeOutcome {
	return timed(func() (bool, string) {
		if test.Command == "" {
			return false, "command is required for cmd test"
		}
		waitSec := (timeoutMS + 999) / 1000
		if waitSec < 1 {
			waitSec = 1
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitSec)*time.Second)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", test.Command)
		var buf bytes.Buffer
		limited := &limitedWriter{max: maxCmdOutputBytes, buf: &buf}
		cmd.Stdout = limited
		cmd.Stderr = limited

		runErr := cmd.Run()
		exitCode := exitCodeOf(cmd, runErr)

		if exitCode == test.ExpectedExitCode {
			return true, ""
		}
		return false, exitMismatchMessage(exitCode, test.ExpectedExitCode, buf.String())
	})
}

func exitCodeOf(cmd *exec.Cmd, runErr error) int {
	if cmd.ProcessState == nil {
		return -1
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return cmd.ProcessState.ExitCode()
}

func exitMismatchMessage(got, want int, output string) string {
	msg := "command exited with unexpected code"
	if len(output) > 0 {
		msg += ": " + output
	}
	_ = got
	_ = want
	return msg
}

// limitedWriter caps total bytes written, silently discarding the rest,
// enough to keep the captured diagnostic bounded.
type limitedWriter struct {
	max int
	buf *bytes.Buffer
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	remaining := w.max - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
	} else {
		w.buf.Write(p)
	}
	return len(p), nil
}
