package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arguslabs/argus-go/internal/config"
	"github.com/arguslabs/argus-go/internal/httpapi"
	"github.com/arguslabs/argus-go/internal/logging"
	"github.com/arguslabs/argus-go/internal/pushmanager"
	"github.com/arguslabs/argus-go/internal/registry"
	"github.com/arguslabs/argus-go/internal/sdnotify"
)

const watchdogSafetyMargin = 2 // notify at 1/n of the watchdog interval

var (
	daemonMode  bool
	systemdMode bool
	logFilePath string
)

var rootCmd = &cobra.Command{
	Use:   "argus <config.yaml>",
	Short: "Network reachability monitor with threshold alerting and Web Push notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().BoolVarP(&daemonMode, "daemon", "d", false, "run without interactive output")
	rootCmd.Flags().BoolVarP(&systemdMode, "systemd", "s", false, "enable systemd sd_notify readiness/watchdog integration")
	rootCmd.Flags().StringVarP(&logFilePath, "log-file", "l", "", "also write logs to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configPath := args[0]

	log, err := logging.New(logging.Options{LogFile: logFilePath, Daemon: daemonMode})
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Errorw("load config failed", "path", configPath, "error", err)
		return err
	}
	log.Infow("configuration loaded", "path", configPath, "groups", len(cfg.Monitors))

	push, err := pushmanager.New(pushmanager.Config{
		Enabled:            cfg.Push.Enabled,
		VapidSubject:       cfg.Push.VapidSubject,
		VapidPublicKeyB64:  cfg.Push.VapidPublicKeyB64,
		VapidPrivateKeyB64: cfg.Push.VapidPrivateKeyB64,
		SubscriptionsPath:  cfg.Push.SubscriptionsPath,
		SuppressionsPath:   cfg.Push.SuppressionsPath,
	}, log)
	if err != nil {
		log.Errorw("initialize push manager failed", "error", err)
		return err
	}

	reg := registry.New(cfg.Monitors, cfg.ThreadPoolSize, cfg.LogStatusEveryN, log, func(tr registry.Transition) {
		onTransition(cmd.Context(), push, log, tr)
	})
	reg.Start()
	defer reg.Stop()

	srv := httpapi.New(cfg.ListenAddr, httpapi.Config{
		Name:        cfg.Name,
		BaseURL:     cfg.BaseURL,
		CacheTTLSec: cfg.CacheTTLSec,
	}, reg, push, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if systemdMode {
		go runSystemdIntegration(ctx, reg, log)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := sdnotify.Stopping(); err != nil {
			log.Warnw("sd_notify stopping failed", "error", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("server shutdown failed", "error", err)
		}
	}()

	if systemdMode {
		if _, err := sdnotify.Ready(); err != nil {
			log.Warnw("sd_notify ready failed", "error", err)
		}
	}

	log.Infow("argus listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
	if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("server error", "error", err)
		return err
	}
	return nil
}

func onTransition(ctx context.Context, push *pushmanager.Manager, log interface {
	Infow(string, ...any)
}, tr registry.Transition) {
	log.Infow("dispatching push notification for transition",
		"test_id", tr.TestID, "previous", tr.Previous.String(), "next", tr.Next.String())

	title := tr.GroupName + "/" + tr.DestinationName
	body := "status changed from " + tr.Previous.String() + " to " + tr.Next.String()
	push.NotifyForTest(ctx, tr.TestID, title, body, "", map[string]any{
		"test_id":            tr.TestID,
		"previous":           tr.Previous.String(),
		"next":               tr.Next.String(),
		"consecutive_failures": tr.ConsecutiveFailures,
	})
}

func runSystemdIntegration(ctx context.Context, reg *registry.Registry, log interface {
	Warnw(string, ...any)
}) {
	enabled, usec := sdnotify.WatchdogEnabled()
	if !enabled {
		return
	}
	interval := time.Duration(usec/watchdogSafetyMargin) * time.Microsecond
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !reg.Healthy() {
				continue
			}
			if _, err := sdnotify.Watchdog(); err != nil {
				log.Warnw("sd_notify watchdog failed", "error", err)
			}
		}
	}
}
