// Package config loads and validates the YAML configuration file into the
// engine's types.MonitorConfig boundary type. It exists so "unset" can be
// told apart from an explicit zero (notably cache_ttl_sec == 0, which
// disables caching) using pointer fields on the wire-facing structs,
// converted to plain values once defaults are applied.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arguslabs/argus-go/internal/types"
)

const (
	defaultBaseURL         = "/argus"
	defaultCacheTTLSec     = 30
	defaultListenAddr      = ":8822"
	defaultLogStatusEveryN = 10
)

type rawTestConfig struct {
	Kind             string `yaml:"kind"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Protocol         string `yaml:"protocol"`
	URL              string `yaml:"url"`
	Proxy            string `yaml:"proxy"`
	Command          string `yaml:"command"`
	ExpectedExitCode int    `yaml:"expected_exit_code"`
}

type rawDestination struct {
	SortKey     int           `yaml:"sort_key"`
	Name        string        `yaml:"name"`
	TimeoutMS   int           `yaml:"timeout_ms"`
	Warning     int           `yaml:"warning"`
	Failure     int           `yaml:"failure"`
	Reset       int           `yaml:"reset"`
	IntervalSec int           `yaml:"interval_sec"`
	HistoryCap  int           `yaml:"history_cap"`
	Test        rawTestConfig `yaml:"test"`
}

type rawGroup struct {
	SortKey      int              `yaml:"sort_key"`
	Name         string           `yaml:"name"`
	Destinations []rawDestination `yaml:"destinations"`
}

type rawPushConfig struct {
	Enabled            bool   `yaml:"enabled"`
	VapidSubject       string `yaml:"vapid_subject"`
	VapidPublicKeyB64  string `yaml:"vapid_public_key"`
	VapidPrivateKeyB64 string `yaml:"vapid_private_key"`
	SubscriptionsPath  string `yaml:"subscriptions_path"`
	SuppressionsPath   string `yaml:"suppressions_path"`
}

// rawConfig mirrors the YAML file shape. Fields that need to distinguish
// "absent from the file" from "explicitly zero" are pointers; everything
// else is a plain value defaulted after parsing.
type rawConfig struct {
	Name            string        `yaml:"name"`
	ListenAddr      string        `yaml:"listen_addr"`
	BaseURL         string        `yaml:"base_url"`
	CacheTTLSec     *int          `yaml:"cache_ttl_sec"`
	HTMLTemplate    string        `yaml:"html_template"`
	StaticDir       string        `yaml:"static_dir"`
	LogStatusEveryN *int          `yaml:"log_status_every_n"`
	ThreadPoolSize  int           `yaml:"thread_pool_size"`
	Monitors        []rawGroup    `yaml:"monitors"`
	Push            rawPushConfig `yaml:"push"`
}

// Load reads and validates a YAML configuration file at path, applying
// the same defaults the original systems-language Argus applies.
func Load(path string) (types.MonitorConfig, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return types.MonitorConfig{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return types.MonitorConfig{}, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&raw)

	groups, err := buildGroups(raw.Monitors)
	if err != nil {
		return types.MonitorConfig{}, err
	}

	cfg := types.MonitorConfig{
		Name:            raw.Name,
		ListenAddr:      raw.ListenAddr,
		BaseURL:         raw.BaseURL,
		CacheTTLSec:     *raw.CacheTTLSec,
		HTMLTemplate:    raw.HTMLTemplate,
		StaticDir:       raw.StaticDir,
		LogStatusEveryN: *raw.LogStatusEveryN,
		ThreadPoolSize:  raw.ThreadPoolSize,
		Monitors:        groups,
		Push: types.PushConfig{
			Enabled:            raw.Push.Enabled,
			VapidSubject:       raw.Push.VapidSubject,
			VapidPublicKeyB64:  raw.Push.VapidPublicKeyB64,
			VapidPrivateKeyB64: raw.Push.VapidPrivateKeyB64,
			SubscriptionsPath:  raw.Push.SubscriptionsPath,
			SuppressionsPath:   raw.Push.SuppressionsPath,
		},
	}

	if err := cfg.Validate(); err != nil {
		return types.MonitorConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(raw *rawConfig) {
	if raw.BaseURL == "" {
		raw.BaseURL = defaultBaseURL
	}
	if raw.ListenAddr == "" {
		raw.ListenAddr = defaultListenAddr
	}
	if raw.CacheTTLSec == nil {
		v := defaultCacheTTLSec
		raw.CacheTTLSec = &v
	}
	if raw.LogStatusEveryN == nil {
		v := defaultLogStatusEveryN
		raw.LogStatusEveryN = &v
	}
}

func buildGroups(raw []rawGroup) ([]types.Group, error) {
	if len(raw) == 0 {
		return nil, errors.New("config: at least one monitor group is required")
	}
	groups := make([]types.Group, 0, len(raw))
	for _, rg := range raw {
		dests := make([]types.Destination, 0, len(rg.Destinations))
		for _, rd := range rg.Destinations {
			test, err := buildTestConfig(rd.Test)
			if err != nil {
				return nil, fmt.Errorf("group %q destination %q: %w", rg.Name, rd.Name, err)
			}
			dest, err := types.NewDestination(rd.SortKey, rd.Name, rd.TimeoutMS, rd.Warning, rd.Failure, rd.Reset, rd.IntervalSec, rd.HistoryCap, test)
			if err != nil {
				return nil, fmt.Errorf("group %q destination %q: %w", rg.Name, rd.Name, err)
			}
			dests = append(dests, dest)
		}
		group, err := types.NewGroup(rg.SortKey, rg.Name, dests)
		if err != nil {
			return nil, fmt.Errorf("group %q: %w", rg.Name, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func buildTestConfig(rt rawTestConfig) (types.TestConfig, error) {
	switch rt.Kind {
	case "ping":
		return types.NewPing(rt.Host)
	case "connect":
		return types.NewConnect(rt.Host, rt.Port, types.Protocol(rt.Protocol))
	case "url":
		return types.NewURL(rt.URL, rt.Proxy)
	case "cmd":
		return types.NewCmd(rt.Command, rt.ExpectedExitCode)
	default:
		return types.TestConfig{}, fmt.Errorf("unknown test kind %q", rt.Kind)
	}
}
