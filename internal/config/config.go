// Package config provides configuration loading and validation for the
// outreach agent. Values come from an optional JSON file overridden by
// environment variables; the CLI loads .env first via godotenv.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the full runtime configuration.
type Config struct {
	// Server
	Port        int    `json:"port,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
	DocumentDir string `json:"document_dir,omitempty"`

	// Generation and research
	GeminiAPIKey   string `json:"gemini_api_key,omitempty"` // shared fallback key
	SearchAPIKey   string `json:"search_api_key,omitempty"`
	SearchEngineID string `json:"search_engine_id,omitempty"`

	// System send account, also the SMTP endpoint for tenant credentials
	SMTPHost     string `json:"smtp_host,omitempty"`
	SMTPPort     int    `json:"smtp_port,omitempty"`
	SMTPEmail    string `json:"smtp_email,omitempty"`
	SMTPPassword string `json:"smtp_password,omitempty"`

	// CredentialKey and CredentialSalt protect stored tenant credentials
	CredentialKey  string `json:"credential_key,omitempty"`
	CredentialSalt string `json:"credential_salt,omitempty"`

	// Background work
	Workers          int           `json:"workers,omitempty"`
	QueueSize        int           `json:"queue_size,omitempty"`
	FollowUpInterval time.Duration `json:"-"`
	WatchdogInterval time.Duration `json:"-"`

	Verbose bool `json:"verbose,omitempty"`
}

// Load builds the configuration: JSON file (optional), then environment
// overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.DocumentDir, "DOCUMENT_DIR")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.SearchAPIKey, "SEARCH_API_KEY")
	setString(&c.SearchEngineID, "SEARCH_ENGINE_ID")
	setString(&c.SMTPHost, "SMTP_HOST")
	setString(&c.SMTPEmail, "SMTP_EMAIL")
	setString(&c.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.CredentialKey, "CREDENTIAL_KEY")
	setString(&c.CredentialSalt, "CREDENTIAL_SALT")
	setInt(&c.Port, "PORT")
	setInt(&c.SMTPPort, "SMTP_PORT")
	setInt(&c.Workers, "WORKERS")
	setInt(&c.QueueSize, "QUEUE_SIZE")
	setDuration(&c.FollowUpInterval, "FOLLOWUP_INTERVAL")
	setDuration(&c.WatchdogInterval, "WATCHDOG_INTERVAL")
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.DocumentDir == "" {
		c.DocumentDir = "data/documents"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.QueueSize == 0 {
		c.QueueSize = 64
	}
	if c.FollowUpInterval == 0 {
		c.FollowUpInterval = 15 * time.Minute
	}
	if c.WatchdogInterval == 0 {
		c.WatchdogInterval = 5 * time.Minute
	}
	if c.CredentialSalt == "" {
		c.CredentialSalt = "outreach-agent-credentials-v1"
	}
}

// Validate checks that the configuration can run the server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: database URL is required (DATABASE_URL)")
	}
	if c.CredentialKey == "" {
		return fmt.Errorf("config error: credential key is required (CREDENTIAL_KEY)")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: port %d out of range", c.Port)
	}
	if c.SMTPEmail != "" && (c.SMTPHost == "" || c.SMTPPassword == "") {
		return fmt.Errorf("config error: SMTP_EMAIL requires SMTP_HOST and SMTP_PASSWORD")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
