package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.FollowUpInterval)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"port": 9090,
		"database_url": "postgres://file/db",
		"smtp_host": "smtp.file.example"
	}`), 0o644))

	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("FOLLOWUP_INTERVAL", "1h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "file value survives when env is unset")
	assert.Equal(t, "postgres://env/db", cfg.DatabaseURL, "env wins over file")
	assert.Equal(t, "smtp.file.example", cfg.SMTPHost)
	assert.Equal(t, time.Hour, cfg.FollowUpInterval)
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := &Config{
		Port:          8080,
		DatabaseURL:   "postgres://localhost/outreach",
		CredentialKey: "secret-passphrase",
	}
	assert.NoError(t, valid.Validate())

	noDB := *valid
	noDB.DatabaseURL = ""
	assert.Error(t, noDB.Validate())

	noKey := *valid
	noKey.CredentialKey = ""
	assert.Error(t, noKey.Validate())

	partialSMTP := *valid
	partialSMTP.SMTPEmail = "agent@corp.example"
	assert.Error(t, partialSMTP.Validate(), "SMTP address without host and password")

	fullSMTP := partialSMTP
	fullSMTP.SMTPHost = "smtp.corp.example"
	fullSMTP.SMTPPassword = "app-password"
	assert.NoError(t, fullSMTP.Validate())
}
