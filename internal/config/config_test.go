package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weed-client.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9333", cfg.Master)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "http", cfg.Scheme)
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.False(t, cfg.PublicURL)
	assert.True(t, filepath.IsAbs(cfg.JournalDir))
	assert.Equal(t, path, cfg.File)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := writeConfig(t, `
master: filer.local:9333
timeout: 5s
collection: photos
replication: "001"
log-level: debug
journal-dir: /tmp/weed-journal
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "filer.local:9333", cfg.Master)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "photos", cfg.Collection)
	assert.Equal(t, "001", cfg.Replication)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/tmp/weed-journal", cfg.JournalDir)

	t.Setenv("WEED_MASTER", "env.local:9333")
	t.Setenv("WEED_PUBLIC_URL", "true")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "env.local:9333", cfg.Master)
	assert.True(t, cfg.PublicURL)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyMaster, "localhost:9333", "")
	flags.Duration(KeyTimeout, time.Minute, "")
	require.NoError(t, flags.Parse([]string{"--master", "flag.local:9333"}))

	cfg, err = Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "flag.local:9333", cfg.Master)
	assert.Equal(t, 5*time.Second, cfg.Timeout, "unset flags fall back to the file")
}

func TestLoadRejects(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "log-level: loud\n"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "replication: \"9\"\n"), nil)
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "timeout: 0s\n"), nil)
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	cfg := &Config{Timeout: time.Second, Scheme: "http"}
	assert.Len(t, cfg.ClientOptions(slog.Default()), 3)

	cfg.PublicURL = true
	cfg.SigningKey = "secret"
	assert.Len(t, cfg.ClientOptions(slog.Default()), 6)

	cfg.Collection = "c"
	cfg.Replication = "010"
	defaults := cfg.AssignDefaults()
	assert.Equal(t, "c", defaults.Collection)
	assert.Equal(t, "010", defaults.Replication)
}
