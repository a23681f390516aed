package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/scheduler"
)

var followupsCmd = &cobra.Command{
	Use:   "followups",
	Short: "Run one follow-up pass and exit",
	Long:  "Send every follow-up that is currently due, then exit. Useful for cron-style deployments that do not run the long-lived server.",
	RunE:  runFollowups,
}

func init() {
	rootCmd.AddCommand(followupsCmd)
}

func runFollowups(_ *cobra.Command, _ []string) error {
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

	scheduler.New(a.database, a.engine, cfg.FollowUpInterval).RunOnce(ctx)
	return nil
}
