// Package sdnotify sends the systemd service notification protocol
// (sd_notify(3)) messages over the NOTIFY_SOCKET unix datagram socket,
// without linking libsystemd.
package sdnotify

import (
	"net"
	"os"
)

// Notify sends state to the socket named by $NOTIFY_SOCKET. It is a no-op
// (returning false, nil) when the process is not running under systemd.
func Notify(state string) (sent bool, err error) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return false, nil
	}

	addr := &net.UnixAddr{Name: socketPath, Net: "unixgram"}
	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if _, err := conn.Write([]byte(state)); err != nil {
		return false, err
	}
	return true, nil
}

// Ready sends "READY=1".
func Ready() (bool, error) { return Notify("READY=1") }

// Watchdog sends "WATCHDOG=1".
func Watchdog() (bool, error) { return Notify("WATCHDOG=1") }

// Stopping sends "STOPPING=1".
func Stopping() (bool, error) { return Notify("STOPPING=1") }

// WatchdogEnabled reports whether $WATCHDOG_USEC is set, and its value.
func WatchdogEnabled() (enabled bool, usec int64) {
	raw := os.Getenv("WATCHDOG_USEC")
	if raw == "" {
		return false, 0
	}
	var v int64
	for _, c := range raw {
		if c < '0' || c > '9' {
			return false, 0
		}
		v = v*10 + int64(c-'0')
	}
	return v > 0, v
}
