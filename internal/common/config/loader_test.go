package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NOTION_TOKEN", "NOTION_DATABASE_ID", "APPLICATION_DATABASE_ID",
		"NOTION_STORE", "ALLOWED_ORIGIN", "PORT", "DB_USER", "DB_PASSWORD",
		"SERVER_PORT", "TEST_NOTION_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile_MemoryStoreDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
app:
  name: recruiting-pipeline
notion:
  store: memory
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Notion.Store)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.AllowedOrigin)
	assert.Equal(t, "2022-06-28", cfg.Notion.APIVersion)
	assert.Equal(t, "https://api.notion.com/v1", cfg.Notion.BaseURL)
	assert.Equal(t, 300, cfg.Cache.CountTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Postgres.Enabled())
	assert.False(t, cfg.Database.Redis.Enabled())
}

func TestLoadFromFile_NotionRequiresCredentials(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
notion:
  store: notion
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
}

func TestLoadFromFile_CredentialsFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("APPLICATION_DATABASE_ID", "db-123")
	path := writeConfig(t, `
notion:
  store: notion
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret_abc", cfg.Notion.Token)
	assert.Equal(t, "db-123", cfg.Notion.DatabaseID)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_NOTION_TOKEN", "from-placeholder")
	path := writeConfig(t, `
notion:
  store: notion
  token: ${TEST_NOTION_TOKEN}
  database_id: db-1
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-placeholder", cfg.Notion.Token)
}

func TestLoadFromFile_RejectsUnknownStore(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
notion:
  store: dynamo
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.store")
}

func TestLoadFromFile_PostgresNeedsDatabaseWhenEnabled(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
notion:
  store: memory
database:
  postgres:
    host: localhost
    user: recruiter
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.postgres.database")
}

func TestWorkerConfigDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
notion:
  store: memory
workers:
  submit-interview-stage:
    enabled: true
  update-applicant-status:
    enabled: false
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	submit := GetWorkerConfig(cfg, "submit-interview-stage")
	assert.True(t, submit.Enabled)
	assert.Equal(t, 5, submit.MaxJobsActive)
	assert.Equal(t, 30000, submit.Timeout)
	assert.Equal(t, 3, submit.MaxRetries)

	assert.False(t, IsWorkerEnabled(cfg, "update-applicant-status"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown-worker"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "unknown-worker").MaxJobsActive)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
