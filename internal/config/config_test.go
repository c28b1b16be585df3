package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "DB_CONN_STR", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "API_TOKEN", "GRPC_ADDR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=sipledger sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.Interval.Duration)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "INR", cfg.Reminders.Currency)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sipledger.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
driver = "sqlite"
dsn = "/var/lib/sipledger/ledger.db"

[scheduler]
interval = "6h"
timeout = "90s"
workers = 4
run_on_start = false

[log]
level = "debug"
format = "console"
`), 0o600))

	t.Setenv("API_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/var/lib/sipledger/ledger.db", cfg.Database.DSN)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval.Duration)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.Timeout.Duration)
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.False(t, cfg.Scheduler.RunOnStart)
	assert.Equal(t, "from-env", cfg.Server.APIToken)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Rejections(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"Bad duration", "[scheduler]\ninterval = \"daily\"\n"},
		{"Unknown driver", "[database]\ndriver = \"mysql\"\n"},
		{"Sqlite without path", "[database]\ndriver = \"sqlite\"\n"},
		{"Negative workers", "[scheduler]\nworkers = -1\n"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i))+".toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
