package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/arguslabs/argus-go/internal/types"
)

// PingExecutor implements the three-tier ping fallback of:
// unprivileged ICMP datagram socket, then privileged raw socket (both via
// pro-bing, which already implements that datagram/raw split internally),
// then a forked system `ping` command.
type PingExecutor struct{}

var validPingHost = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,255}$`)

func (PingExecutor) Execute(test types.TestConfig, timeoutMS int) types.ProbeOutcome {
	return timed(func() (bool, string) {
		host := test.Host
		if host == "" {
			return false, "host is required for ping test"
		}
		timeout := time.Duration(timeoutMS) * time.Millisecond

		var lastErr string
		if ok, errMsg := pingViaLibrary(host, timeout, false); ok {
			return true, ""
		} else {
			lastErr = errMsg
		}
		if ok, errMsg := pingViaLibrary(host, timeout, true); ok {
			return true, ""
		} else {
			lastErr = errMsg
		}
		if ok, errMsg := pingViaCommand(host, timeoutMS); ok {
			return true, ""
		} else {
			lastErr = errMsg
		}
		return false, lastErr
	})
}

// pingViaLibrary drives pro-bing's Pinger, which itself opens either an
// unprivileged ICMP datagram socket or (when privileged) a raw ICMP
// socket, builds the echo request/identifier/sequence/checksum, and waits
// for a reply.
func pingViaLibrary(host string, timeout time.Duration, privileged bool) (bool, string) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, err.Error()
	}
	pinger.SetPrivileged(privileged)
	pinger.Count = 1
	pinger.Timeout = timeout

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pinger.RunWithContext(ctx); err != nil {
		return false, err.Error()
	}
	stats := pinger.Statistics()
	if stats == nil || stats.PacketsRecv == 0 {
		return false, "no reply received"
	}
	return true, ""
}

var pingSuccessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+ bytes from`),
	regexp.MustCompile(`\d+ packets transmitted, \d+ received`),
	regexp.MustCompile(`time=\d+(\.\d+)?ms`),
}

// pingViaCommand shells out to the system `ping` binary. The hostname is
// validated against a strict allowlist before it ever reaches exec.Command
// so no shell metacharacter can be smuggled through.
func pingViaCommand(host string, timeoutMS int) (bool, string) {
	if !validPingHost.MatchString(host) {
		return false, "invalid hostname for ping command"
	}

	waitSec := (timeoutMS+999)/1000 + 1
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitSec)*time.Second+time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ping", "-c", "1", "-W", fmt.Sprintf("%d", waitSec), host)
	out, runErr := cmd.CombinedOutput()
	output := string(out)

	matched := false
	for _, re := range pingSuccessPatterns {
		if re.MatchString(output) {
			matched = true
			break
		}
	}
	if runErr == nil && matched {
		return true, ""
	}
	if runErr != nil {
		return false, runErr.Error()
	}
	return false, "ping command produced no recognizable success output"
}
