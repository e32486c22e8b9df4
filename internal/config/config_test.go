package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "game.arc", cfg.Output)
	assert.False(t, cfg.Compress)
	assert.Equal(t, "sha256", cfg.HashAlgorithm)
	assert.Equal(t, LegacyKey, cfg.EncryptionKey)
	assert.Equal(t, []string{"luac", "scriptc", "gui_scriptc", "render_scriptc"}, cfg.EncryptedExtensions)
	assert.True(t, cfg.Layout.PowerOfTwo)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "darc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
root: content
compress: true
split: true
ordering: hash
encryption_key: "0123456789abcdef"
encrypted_extensions: [luac]
layout:
  margin: 2
  power_of_two: false
log_format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.Root)
	assert.True(t, cfg.Compress)
	assert.True(t, cfg.Split)
	assert.Equal(t, "hash", cfg.Ordering)
	assert.Equal(t, "0123456789abcdef", cfg.EncryptionKey)
	assert.Equal(t, []string{"luac"}, cfg.EncryptedExtensions)
	assert.Equal(t, 2, cfg.Layout.Margin)
	assert.False(t, cfg.Layout.PowerOfTwo)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "darc.yaml"), []byte("output: out.arc\n"), 0o644))
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "out.arc", cfg.Output)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"short key":       "encryption_key: short\n",
		"negative margin": "layout:\n  margin: -1\n",
		"bad format":      "log_format: xml\n",
		"bad yaml":        "root: [unclosed\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path)
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
