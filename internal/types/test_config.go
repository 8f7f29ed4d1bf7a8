// Package types holds the data model shared by the probing engine: test
// configurations, destinations, groups, and the outcome/state value types
// that flow between the scheduler, monitor state, and push pipeline.
package types

import (
	"fmt"
	"net/url"
)

// Protocol selects the transport used by a Connect test.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Kind discriminates the TestConfig variants.
type Kind int

const (
	KindPing Kind = iota
	KindConnect
	KindURL
	KindCmd
)

func (k Kind) String() string {
	switch k {
	case KindPing:
		return "ping"
	case KindConnect:
		return "connect"
	case KindURL:
		return "url"
	case KindCmd:
		return "cmd"
	default:
		return "unknown"
	}
}

// TestConfig is the tagged-variant probe definition. Exactly one of the
// per-kind fields is populated, selected by Kind. Construct with the
// NewXxx helpers below, which validate; zero-value TestConfig is invalid.
type TestConfig struct {
	Kind Kind

	// Ping / Connect
	Host string

	// Connect
	Port     int
	Protocol Protocol

	// Url
	URL   string
	Proxy string

	// Cmd
	Command          string
	ExpectedExitCode int
}

// NewPing builds a Ping test. Host must be non-empty.
func NewPing(host string) (TestConfig, error) {
	if host == "" {
		return TestConfig{}, fmt.Errorf("ping test: host is required")
	}
	return TestConfig{Kind: KindPing, Host: host}, nil
}

// NewConnect builds a Connect test over TCP or UDP.
func NewConnect(host string, port int, proto Protocol) (TestConfig, error) {
	if host == "" {
		return TestConfig{}, fmt.Errorf("connect test: host is required")
	}
	if port <= 0 || port > 65535 {
		return TestConfig{}, fmt.Errorf("connect test: invalid port %d", port)
	}
	if proto != ProtocolTCP && proto != ProtocolUDP {
		return TestConfig{}, fmt.Errorf("connect test: protocol must be tcp or udp, got %q", proto)
	}
	return TestConfig{Kind: KindConnect, Host: host, Port: port, Protocol: proto}, nil
}

// NewURL builds a Url test. Scheme must be http or https.
func NewURL(rawURL, proxy string) (TestConfig, error) {
	if rawURL == "" {
		return TestConfig{}, fmt.Errorf("url test: url is required")
	}
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return TestConfig{}, fmt.Errorf("url test: scheme must be http or https, got %q", rawURL)
	}
	return TestConfig{Kind: KindURL, URL: rawURL, Proxy: proxy}, nil
}

// NewCmd builds a Cmd test.
func NewCmd(command string, expectedExitCode int) (TestConfig, error) {
	if command == "" {
		return TestConfig{}, fmt.Errorf("cmd test: command is required")
	}
	return TestConfig{Kind: KindCmd, Command: command, ExpectedExitCode: expectedExitCode}, nil
}

// Description renders a short human-readable summary, used for the status
// endpoint's "details" field.
func (t TestConfig) Description() string {
	switch t.Kind {
	case KindPing:
		return fmt.Sprintf("PING %s", t.Host)
	case KindConnect:
		return fmt.Sprintf("%s %s:%d", string(t.Protocol), t.Host, t.Port)
	case KindURL:
		return fmt.Sprintf("GET %s", t.URL)
	case KindCmd:
		return fmt.Sprintf("CMD %s", t.Command)
	default:
		return "unknown test"
	}
}

// HostValue returns the dialable host for tests that carry one (Ping/Connect),
// or the empty string for Url/Cmd.
func (t TestConfig) HostValue() string {
	if t.Kind == KindPing || t.Kind == KindConnect {
		return t.Host
	}
	return ""
}
