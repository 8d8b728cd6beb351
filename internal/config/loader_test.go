package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Address())
	assert.Equal(t, 120*time.Second, cfg.Cleanup.MaxTaskAge)
	assert.Equal(t, 30*time.Second, cfg.Cleanup.DisplayWindow)
	assert.True(t, cfg.Cleanup.OnlyIfSeen)
	assert.Equal(t, int64(5*1024*1024), cfg.Sync.MaxPageBytes)
	assert.Equal(t, []string{"stderr"}, cfg.Logger.OutputPaths)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  memory: true
sync:
  page_url: https://example.com/tasks
cleanup:
  max_task_age: 10m
`), 0o644))

	t.Setenv("TASKSYNC_SYNC_COOKIE", "sessionid=abc")
	t.Setenv("TASKSYNC_SERVER_PORT", "9100")

	cfg, err := LoadWith(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.True(t, cfg.Server.Memory)
	assert.Equal(t, "https://example.com/tasks", cfg.Sync.PageURL)
	assert.Equal(t, "sessionid=abc", cfg.Sync.Cookie)
	assert.Equal(t, 10*time.Minute, cfg.Cleanup.MaxTaskAge)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "tasks", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=tasks sslmode=disable", d.DSN())
}
