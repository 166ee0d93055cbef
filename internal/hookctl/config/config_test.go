package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.ReceiverURL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
	assert.Empty(t, cfg.Secret)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
receiver_url: https://hooks.example.com
secret: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://hooks.example.com", cfg.ReceiverURL)
	assert.Equal(t, "s3cret", cfg.Secret)

	// Unset fields keep their defaults.
	assert.Equal(t, "http://localhost:8082", cfg.LogsURL)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Secret = "saved-secret"
	require.NoError(t, cfg.Save())

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-secret", back.Secret)
}
