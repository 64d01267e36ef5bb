package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"shareit/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("SHAREIT_TEST_DB", filepath.Join(tmpDir, "shareit.db"))

	yamlContent := `
app:
  name: "shareit-test"
database:
  path: "${SHAREIT_TEST_DB}"
api:
  auth:
    enabled: true
    api_keys:
      - key: "gw"
        extra: "secret"
        name: "gateway"
gateway:
  server_url: "http://backend:9090"
  rate_limit:
    enabled: true
    requests: 5
    window: 30s
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0o644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "shareit-test", cfg.App.Name)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, filepath.Join(tmpDir, "shareit.db"), cfg.Database.Path)
	assert.Equal(t, "http://backend:9090", cfg.Gateway.ServerURL)
	assert.Equal(t, 5, cfg.Gateway.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.Gateway.RateLimit.Window)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "gateway", cfg.API.Auth.APIKeys[0].Name)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidDriver(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("database:\n  driver: postgres\n"), 0o644))

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		cfg := Config{Database: DatabaseConfig{Path: "shareit.db"}}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "memory driver without path", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Driver: DriverMemory}
		}},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "auth without keys", mutate: func(c *Config) { c.API.Auth.Enabled = true }, wantErr: true},
		{name: "bad server url", mutate: func(c *Config) { c.Gateway.ServerURL = "::nope" }, wantErr: true},
		{name: "telegram without token", mutate: func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, ChatID: 42}
		}, wantErr: true},
		{name: "telegram without chat", mutate: func(c *Config) {
			c.Telegram = TelegramConfig{Enabled: true, BotToken: "token"}
		}, wantErr: true},
		{name: "backup on memory store", mutate: func(c *Config) {
			c.Database = DatabaseConfig{Driver: DriverMemory}
			c.Backup.Enabled = true
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 9090, cfg.API.HTTP.Port)
	assert.Equal(t, 9091, cfg.API.GRPC.Port)
	assert.Equal(t, 8080, cfg.Gateway.Port)
	assert.Equal(t, "http://localhost:9090", cfg.Gateway.ServerURL)
	assert.Empty(t, cfg.Gateway.GRPCAddr)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, models.DefaultRateLimitRequests, cfg.Gateway.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.Gateway.RateLimit.Window)
	assert.Equal(t, "24h", cfg.Backup.Schedule)

	withGRPC := &Config{API: APIConfig{GRPC: APIGRPCConfig{Enabled: true}}}
	withGRPC.applyDefaults()
	assert.Equal(t, "localhost:9091", withGRPC.Gateway.GRPCAddr)
}
