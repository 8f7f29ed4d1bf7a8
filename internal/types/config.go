package types

import "fmt"

// PushConfig configures the Web Push delivery pipeline (C7-C10).
type PushConfig struct {
	Enabled             bool
	VapidSubject        string
	VapidPublicKeyB64   string
	VapidPrivateKeyB64  string
	SubscriptionsPath   string
	SuppressionsPath    string
}

// Validate enforces the PushConfig invariant: if enabled, subject and
// both keys must be non-empty.
func (p PushConfig) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.VapidSubject == "" {
		return fmt.Errorf("push config: vapid_subject is required when push is enabled")
	}
	if p.VapidPublicKeyB64 == "" {
		return fmt.Errorf("push config: vapid_public_key is required when push is enabled")
	}
	if p.VapidPrivateKeyB64 == "" {
		return fmt.Errorf("push config: vapid_private_key is required when push is enabled")
	}
	return nil
}

// MonitorConfig is the top-level, validated configuration value the engine
// consumes. Building one from a config file is outside the engine's scope
// (see internal/config); this type is the boundary.
type MonitorConfig struct {
	Name             string
	ListenAddr       string
	BaseURL          string
	CacheTTLSec      int
	HTMLTemplate     string
	StaticDir        string
	LogStatusEveryN  int
	ThreadPoolSize   int
	Monitors         []Group
	Push             PushConfig
}

// Validate checks the top-level invariants and cascades into Push.Validate.
func (c MonitorConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("monitor config: name is required")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("monitor config: listen_addr is required")
	}
	if len(c.Monitors) == 0 {
		return fmt.Errorf("monitor config: at least one group is required")
	}
	if err := c.Push.Validate(); err != nil {
		return err
	}
	return nil
}
