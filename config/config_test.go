package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every VAULTIMPORT_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvMasterSecret, EnvModelHost, EnvModel, EnvAPIToken, EnvMaxChunkChars,
		EnvMaxAttempts, EnvChunkTimeout, EnvDBPath, EnvStore, EnvListenAddr,
		EnvPreferDirectCSV, EnvPoolSize,
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultModelHost, cfg.ModelHost)
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, StoreBadger, cfg.Store)
	assert.Equal(t, DefaultMaxChunkChars, cfg.MaxChunkChars)
	assert.Equal(t, filepath.Join(DataDir(), "credentials"), cfg.DBPath)
	assert.False(t, cfg.PreferDirectCSV)
}

func TestLoad_RequiresMasterSecret(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "model: llama3\n"))
	assert.ErrorIs(t, err, ErrMasterSecretMissing)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMasterSecret, "s3cret")

	path := writeConfig(t, `
modelHost: http://gpu-box:11434/v1
model: llama3.1:8b
maxChunkChars: 2000
chunkTimeout: 45s
store: sqlite
preferDirectCSV: true
poolSize: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.MasterSecret)
	assert.Equal(t, "http://gpu-box:11434/v1", cfg.ModelHost)
	assert.Equal(t, "llama3.1:8b", cfg.Model)
	assert.Equal(t, 2000, cfg.MaxChunkChars)
	assert.Equal(t, 45*time.Second, cfg.ChunkTimeout)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, DefaultDBPath(StoreSQLite), cfg.DBPath)
	assert.True(t, cfg.PreferDirectCSV)
	assert.Equal(t, 3, cfg.PoolSize)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMasterSecret, "s3cret")
	t.Setenv(EnvModel, "mistral")
	t.Setenv(EnvMaxChunkChars, "1500")
	t.Setenv(EnvPreferDirectCSV, "false")
	t.Setenv(EnvDBPath, "/tmp/vault.db")
	t.Setenv(EnvListenAddr, ":9090")

	path := writeConfig(t, "model: llama3\nmaxChunkChars: 2000\npreferDirectCSV: true\ndbPath: /var/lib/vault\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, 1500, cfg.MaxChunkChars)
	assert.False(t, cfg.PreferDirectCSV)
	assert.Equal(t, "/tmp/vault.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMasterSecret, "s3cret")
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_MalformedFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMasterSecret, "s3cret")
	_, err := Load(writeConfig(t, "model: [unclosed\n"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{EnvMaxChunkChars, "lots"},
		{EnvPoolSize, "0"},
		{EnvChunkTimeout, "soon"},
		{EnvPreferDirectCSV, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvMasterSecret, "s3cret")
			t.Setenv(tt.name, tt.value)
			_, err := Load(writeConfig(t, ""))
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}
}

func TestLoad_UnknownStore(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvMasterSecret, "s3cret")
	t.Setenv(EnvStore, "postgres")
	_, err := Load(writeConfig(t, ""))
	assert.ErrorIs(t, err, ErrUnknownStore)
}
