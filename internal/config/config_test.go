package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intentd.yml")
	require.NoError(t, os.WriteFile(path, []byte("listen: 0.0.0.0:9000\nlog_level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Unset keys keep their defaults.
	assert.True(t, cfg.EchoSnapshots)
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := FromYAML([]byte("log_level: loud\n"))
	assert.ErrorContains(t, err, "invalid log_level")

	_, err = FromYAML([]byte("listen: \"\"\n"))
	assert.ErrorContains(t, err, "listen must not be empty")

	_, err = FromYAML([]byte("{not yaml"))
	assert.ErrorContains(t, err, "parse config")
}
