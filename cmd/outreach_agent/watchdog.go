package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/scheduler"
)

var watchdogCmd = &cobra.Command{
	Use:   "watchdog",
	Short: "Run one recovery sweep and exit",
	Long:  "Force-fail campaigns stuck in an intermediate state and exit. Stale pending campaigns are left for the next serve process, which re-enqueues them itself.",
	RunE:  runWatchdog,
}

func init() {
	rootCmd.AddCommand(watchdogCmd)
}

func runWatchdog(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// No queue in one-shot mode; only the stuck-state sweep applies
	scheduler.NewWatchdog(a.database, nil, cfg.WatchdogInterval).RunOnce(ctx)
	return nil
}
