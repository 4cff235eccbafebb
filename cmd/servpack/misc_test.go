package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "servpack.toml")
	src := []byte("profile = \"prod\"\ndebug = true\n\n[auth]\ngithub = \"tok\"\n")
	require.NoError(t, os.WriteFile(fpath, src, 0644))

	c, err := loadConfig(fpath)
	require.NoError(t, err)
	assert.Equal(t, "prod", c.Profile)
	assert.True(t, c.Debug)
	assert.Equal(t, "tok", c.Auth["github"])
}

func TestLoadConfigMissing(t *testing.T) {
	// The default config is optional.
	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "", c.Profile)

	// An explicitly named one is not.
	_, err = loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}
