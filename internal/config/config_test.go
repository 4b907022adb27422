package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPanelEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"DATABASE_URL", "LISTEN_ADDR", "DOCKER_SOCKET", "CONTAINER_NAME_PREFIX",
		"BOT_API_KEY", "JSON_LOGS", "DATA_DIR", "BACKUP_ROOT",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	clearPanelEnv(t)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearPanelEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/panel")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/var/run/docker.sock", cfg.DockerSocket)
	assert.Equal(t, "game-panel-", cfg.NamePrefix)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "/backups", cfg.BackupRoot)
	assert.False(t, cfg.JSONLogs)
}

func TestLoadReadsJSONLogsFlag(t *testing.T) {
	clearPanelEnv(t)
	os.Setenv("DATABASE_URL", "postgres://localhost/panel")
	os.Setenv("JSON_LOGS", "true")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("JSON_LOGS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.JSONLogs)
}
