package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/credentials"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/delivery"
	"github.com/jonathan/outreach-agent/internal/docstore"
	"github.com/jonathan/outreach-agent/internal/engine"
	"github.com/jonathan/outreach-agent/internal/generation"
	"github.com/jonathan/outreach-agent/internal/research"
)

// Circuit breaker and pacing defaults for the shared generation provider.
const (
	breakerThreshold = 5
	breakerCooldown  = time.Minute
	paceInterval     = 2 * time.Second
)

// app holds the fully wired application components shared by the serve,
// followups and watchdog commands.
type app struct {
	cfg       *config.Config
	database  *db.DB
	docs      *docstore.Store
	cipher    *credentials.Cipher
	generator *generation.Generator
	engine    *engine.Engine
}

// buildApp connects and wires everything the engine needs.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, err
	}

	docs, err := docstore.New(cfg.DocumentDir)
	if err != nil {
		database.Close()
		return nil, err
	}

	cipher, err := credentials.NewCipher(cfg.CredentialKey, cfg.CredentialSalt)
	if err != nil {
		database.Close()
		return nil, err
	}

	resolver := credentials.NewResolver(database, cipher, credentials.SendCredential{
		Email:  cfg.SMTPEmail,
		Secret: cfg.SMTPPassword,
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
	})

	generator := generation.NewGenerator(
		resolver,
		cfg.GeminiAPIKey,
		nil,
		generation.NewCircuitBreaker(breakerThreshold, breakerCooldown),
		generation.NewPacer(paceInterval),
	)

	var researcher engine.Researcher
	if cfg.SearchAPIKey != "" && cfg.SearchEngineID != "" {
		r, err := research.NewResearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID, generator)
		if err != nil {
			generator.Close()
			database.Close()
			return nil, err
		}
		researcher = r
	} else {
		log.Println("[app] no search credentials configured, company research disabled")
	}

	eng := engine.NewEngine(database, docs, generator, researcher, delivery.NewSMTPMailer(), resolver)

	return &app{
		cfg:       cfg,
		database:  database,
		docs:      docs,
		cipher:    cipher,
		generator: generator,
		engine:    eng,
	}, nil
}

func (a *app) close() {
	a.generator.Close()
	a.database.Close()
}
