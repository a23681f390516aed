package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/engine"
	"github.com/jonathan/outreach-agent/internal/scheduler"
	"github.com/jonathan/outreach-agent/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  "Start the HTTP server together with the campaign worker pool, the follow-up scheduler and the recovery watchdog.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to create JWT config: %w", err)
	}

	dispatcher := engine.NewDispatcher(a.engine, cfg.Workers, cfg.QueueSize)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	go scheduler.New(a.database, a.engine, cfg.FollowUpInterval).Run(ctx)
	go scheduler.NewWatchdog(a.database, dispatcher, cfg.WatchdogInterval).Run(ctx)

	srv := server.New(cfg.Port, server.Deps{
		DB:         a.database,
		Docs:       a.docs,
		Engine:     a.engine,
		Dispatcher: dispatcher,
		Generator:  a.generator,
		Cipher:     a.cipher,
		JWT:        server.NewJWTService(jwtConfig),
	})
	return srv.Start()
}
