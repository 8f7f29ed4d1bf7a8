package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
name: argus
listen_addr: ":8822"
monitors:
  - sort_key: 1
    name: local
    destinations:
      - sort_key: 1
        name: loopback
        timeout_ms: 1000
        warning: 2
        failure: 3
        reset: 2
        interval_sec: 30
        history_cap: 100
        test:
          kind: ping
          host: 127.0.0.1
`

func TestLoadAppliesDefaultsWhenUnset(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != defaultBaseURL {
		t.Fatalf("expected default base_url, got %q", cfg.BaseURL)
	}
	if cfg.CacheTTLSec != defaultCacheTTLSec {
		t.Fatalf("expected default cache_ttl_sec %d, got %d", defaultCacheTTLSec, cfg.CacheTTLSec)
	}
	if cfg.LogStatusEveryN != defaultLogStatusEveryN {
		t.Fatalf("expected default log_status_every_n %d, got %d", defaultLogStatusEveryN, cfg.LogStatusEveryN)
	}
	if len(cfg.Monitors) != 1 || len(cfg.Monitors[0].Destinations) != 1 {
		t.Fatalf("unexpected monitors shape: %+v", cfg.Monitors)
	}
}

func TestLoadRespectsExplicitZeroCacheTTL(t *testing.T) {
	content := minimalConfig + "cache_ttl_sec: 0\n"
	path := writeConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CacheTTLSec != 0 {
		t.Fatalf("expected explicit 0 to disable caching, got %d", cfg.CacheTTLSec)
	}
}

func TestLoadRejectsMissingMonitors(t *testing.T) {
	path := writeConfig(t, "name: argus\nlisten_addr: \":8822\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing monitors")
	}
}

func TestLoadRejectsUnknownTestKind(t *testing.T) {
	content := `
name: argus
listen_addr: ":8822"
monitors:
  - sort_key: 1
    name: local
    destinations:
      - sort_key: 1
        name: bad
        timeout_ms: 1000
        warning: 1
        failure: 2
        reset: 1
        interval_sec: 10
        history_cap: 10
        test:
          kind: telepathy
`
	path := writeConfig(t, content)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown test kind")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadValidatesPushConfigWhenEnabled(t *testing.T) {
	content := minimalConfig + "push:\n  enabled: true\n"
	path := writeConfig(t, content)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error: push enabled without vapid subject/keys")
	}
}
