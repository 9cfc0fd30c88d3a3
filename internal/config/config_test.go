package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 7878, cfg.Server.Port)
	assert.Equal(t, time.Duration(0), cfg.Fuse())
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, 0, cfg.Client.Retries)
	assert.Equal(t, time.Second, cfg.PollInterval())
	assert.False(t, cfg.Metrics.Enabled)
}

func TestMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.NoError(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netspatch.yaml")
	data := `
server:
  host: dispatch.example.com
  port: 9000
  fuse_seconds: 5
client:
  timeout_seconds: 2
  retries: 3
metrics:
  enabled: true
  port: 9191
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dispatch.example.com", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Fuse())
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.Client.Retries)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9191, cfg.Metrics.Port)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netspatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("NETSPATCH_SERVER_PORT", "9001")
	t.Setenv("NETSPATCH_CLIENT_RETRIES", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Client.Retries)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mutate func(*Config)
	}{
		{name: "negative fuse", mutate: func(c *Config) { c.Server.FuseSeconds = -1 }},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "zero timeout", mutate: func(c *Config) { c.Client.TimeoutSeconds = 0 }},
		{name: "negative retries", mutate: func(c *Config) { c.Client.Retries = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
