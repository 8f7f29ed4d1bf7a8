package sdnotify

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNotifyIsNoopWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	sent, err := Notify("READY=1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sent {
		t.Fatal("expected no-op when NOTIFY_SOCKET unset")
	}
}

func TestNotifySendsToUnixgramSocket(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "notify.sock")
	addr := &net.UnixAddr{Name: sockPath, Net: "unixgram"}
	ln, err := net.ListenUnixgram("unixgram", addr)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	t.Setenv("NOTIFY_SOCKET", sockPath)

	sent, err := Ready()
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if !sent {
		t.Fatal("expected message to be sent")
	}

	_ = ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := ln.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "READY=1" {
		t.Fatalf("unexpected message: %q", string(buf[:n]))
	}
}

func TestWatchdogEnabledParsesUsec(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "30000000")
	enabled, usec := WatchdogEnabled()
	if !enabled || usec != 30000000 {
		t.Fatalf("expected enabled with 30000000 usec, got enabled=%v usec=%d", enabled, usec)
	}
}

func TestWatchdogDisabledWhenUnset(t *testing.T) {
	os.Unsetenv("WATCHDOG_USEC")
	enabled, _ := WatchdogEnabled()
	if enabled {
		t.Fatal("expected disabled when WATCHDOG_USEC unset")
	}
}
