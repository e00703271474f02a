package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFiles_Defaults(t *testing.T) {
	cfg, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.True(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "legajos", cfg.Database.Database)
	assert.False(t, cfg.RedisEnabled)
	assert.Equal(t, "vaac:case_events", cfg.Events.Stream)
	assert.Equal(t, int64(100), cfg.Events.BatchSize)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, 10*time.Second, cfg.Registry.Timeout)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFiles_EnvFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_ENABLED=false\nREGISTRY_URL=http://registry.local\nREGISTRY_TIMEOUT=3s\nHTTP_ADDR=:9000\n"), 0o600))
	t.Setenv("HTTP_ADDR", ":7000")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadFiles(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("DB_ENABLED")
		os.Unsetenv("REGISTRY_URL")
		os.Unsetenv("REGISTRY_TIMEOUT")
	})

	assert.False(t, cfg.DBEnabled)
	assert.True(t, cfg.RedisEnabled)
	assert.Equal(t, ":7000", cfg.HTTP.Addr)
	assert.Equal(t, "http://registry.local", cfg.Registry.URL)
	assert.Equal(t, 3*time.Second, cfg.Registry.Timeout)
}

func TestLoadFiles_Invalid(t *testing.T) {
	t.Setenv("MQTT_QOS", "3")
	_, err := LoadFiles()
	assert.Error(t, err)

	t.Setenv("MQTT_QOS", "1")
	t.Setenv("EVENT_BATCH_SIZE", "0")
	_, err = LoadFiles()
	assert.Error(t, err)
}
