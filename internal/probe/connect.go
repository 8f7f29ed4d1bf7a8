package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/arguslabs/argus-go/internal/resolver"
	"github.com/arguslabs/argus-go/internal/types"
)

// ConnectExecutor implements the TCP/UDP connect tests ofEach
// resolved address is tried in order via net.Dialer, which already
// performs the non-blocking-connect-then-select-for-writability dance
// internally; the first address to succeed wins.
type ConnectExecutor struct{}

func (ConnectExecutor) Execute(test types.TestConfig, timeoutMS int) types.ProbeOutcome {
	return timed(func() (bool, string) {
		if test.Host == "" {
			return false, "host is required for connect test"
		}
		timeout := time.Duration(timeoutMS) * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sock := resolver.SockStream
		if test.Protocol == types.ProtocolUDP {
			sock = resolver.SockDgram
		}

		addrs, err := resolver.Resolve(ctx, test.Host, test.Port, sock, resolver.PreferIPv4Preferred)
		if err != nil {
			return false, err.Error()
		}

		var lastErr string
		for _, addr := range addrs {
			var ok bool
			if test.Protocol == types.ProtocolUDP {
				ok, lastErr = tryUDP(ctx, addr)
			} else {
				ok, lastErr = tryTCP(ctx, addr)
			}
			if ok {
				return true, ""
			}
		}
		if lastErr == "" {
			lastErr = "no reachable address"
		}
		return false, lastErr
	})
}

func tryTCP(ctx context.Context, addr resolver.ResolvedAddress) (bool, string) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, addr.Protocol, addr.Display)
	if err != nil {
		return false, err.Error()
	}
	_ = conn.Close()
	return true, ""
}

func tryUDP(ctx context.Context, addr resolver.ResolvedAddress) (bool, string) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, addr.Protocol, addr.Display)
	if err != nil {
		return false, err.Error()
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	}
	if _, err := conn.Write([]byte{}); err != nil {
		return false, fmt.Sprintf("sendto failed: %v", err)
	}
	return true, ""
}
