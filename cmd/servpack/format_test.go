package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatOverwrite(t *testing.T) {
	src := []byte(`mc_version = "1.21.1"

plugin {
	type = "github"
	repository   = "dmulloy2/ProtocolLib"
	version = "latest"

	action "rename" {
		to = "ProtocolLib-${{data.tag_name}}.jar"
	}
}
`)
	fpath := filepath.Join(t.TempDir(), "manifest.pack")
	require.NoError(t, os.WriteFile(fpath, src, 0644))

	cmd := &FormatCommand{Overwrite: true, ContextSize: 3}
	require.True(t, cmd.formatOne(context.Background(), fpath))

	out, err := os.ReadFile(fpath)
	require.NoError(t, err)
	assert.NotEqual(t, src, out)
	assert.Contains(t, string(out), "${{data.tag_name}}")

	// A second pass is a no-op.
	require.True(t, cmd.formatOne(context.Background(), fpath))
	again, err := os.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestFormatRejectsBadManifest(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "manifest.pack")
	require.NoError(t, os.WriteFile(fpath, []byte(`plugin { type = "warez" }`), 0644))

	cmd := &FormatCommand{}
	assert.False(t, cmd.formatOne(context.Background(), fpath))
}
