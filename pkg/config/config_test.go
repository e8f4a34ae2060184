package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DatabaseMemory, cfg.Database.Type)
	require.Equal(t, "8080", cfg.Server.Addr)
	require.Equal(t, 20, cfg.License.KeyRetryLimit)
	require.Equal(t, 3, cfg.License.InsertRetryLimit)
	require.Equal(t, 24*time.Hour, cfg.License.IdempotencyTTL)
	require.False(t, cfg.UsesRelationalStore())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("LICENSE_KEY_RETRY_LIMIT", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DatabaseSQLite, cfg.Database.Type)
	require.Equal(t, 5, cfg.License.KeyRetryLimit)
	require.True(t, cfg.UsesRelationalStore())
}

func TestValidateRejectsUnknownDatabase(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Type = "oracle"
	cfg.License.KeyRetryLimit = 1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTLSWithoutCert(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Type = DatabaseMemory
	cfg.License.KeyRetryLimit = 1
	cfg.TLS.Enable = true
	require.Error(t, cfg.Validate())
}
