package probe

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arguslabs/argus-go/internal/types"
)

func TestDispatchInvalidTimeout(t *testing.T) {
	test, _ := types.NewPing("127.0.0.1")
	for _, ms := range []int{0, -1, 300001} {
		out := Dispatch(test, ms)
		if out.Success || out.Error != "invalid timeout" || out.DurationMS != 0 {
			t.Fatalf("timeout %d: expected invalid-timeout outcome, got %+v", ms, out)
		}
	}
}

func TestConnectExecutorTCPSuccess(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	test, _ := types.NewConnect("127.0.0.1", addr.Port, types.ProtocolTCP)
	out := ConnectExecutor{}.Execute(test, 2000)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestConnectExecutorTCPFailureClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing listening now

	test, _ := types.NewConnect("127.0.0.1", addr.Port, types.ProtocolTCP)
	out := ConnectExecutor{}.Execute(test, 500)
	if out.Success {
		t.Fatalf("expected failure connecting to closed port")
	}
}

func TestURLExecutorSuccess2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	test, _ := types.NewURL(srv.URL, "")
	out := URLExecutor{}.Execute(test, 2000)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestURLExecutorFailureOn500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	test, _ := types.NewURL(srv.URL, "")
	out := URLExecutor{}.Execute(test, 2000)
	if out.Success {
		t.Fatalf("expected failure on 500")
	}
}

func TestCmdExecutorMatchesExpectedExitCode(t *testing.T) {
	test, _ := types.NewCmd("exit 0", 0)
	out := CmdExecutor{}.Execute(test, 2000)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
}

func TestCmdExecutorMismatchedExitCode(t *testing.T) {
	test, _ := types.NewCmd("exit 7", 0)
	out := CmdExecutor{}.Execute(test, 2000)
	if out.Success {
		t.Fatalf("expected failure on mismatched exit code")
	}
}

func TestCmdExecutorCapturesBoundedOutput(t *testing.T) {
	test, _ := types.NewCmd("yes x | head -c 10000", 0)
	out := CmdExecutor{}.Execute(test, 3000)
	// "yes x | head -c 10000" exits 0, so this should succeed regardless of
	// capture size, but the executor must not hang or panic on large output.
	if !out.Success {
		t.Fatalf("expected success even with large stdout, got %+v", out)
	}
}

func TestPingExecutorRejectsUnsafeHostname(t *testing.T) {
	ok, errMsg := pingViaCommand("127.0.0.1; rm -rf /", 1000)
	if ok {
		t.Fatal("expected rejection of unsafe hostname")
	}
	if !strings.Contains(errMsg, "invalid hostname") {
		t.Fatalf("expected invalid hostname error, got %q", errMsg)
	}
}
