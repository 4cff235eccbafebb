package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundtrip(t *testing.T) {
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	e := &Entry{
		AssetID:     "dmulloy2/ProtocolLib",
		Fingerprint: "5.3.0",
		Files:       []string{"plugins/ProtocolLib.jar"},
		Sums:        map[string][]string{"plugins/ProtocolLib.jar": {"sha256:ab"}},
	}
	require.NoError(t, s.Put(e))

	got, err := s.Get("dmulloy2/ProtocolLib")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Fingerprint, got.Fingerprint)
	assert.Equal(t, e.Files, got.Files)
	assert.Equal(t, e.Sums, got.Sums)
	// LastChecked defaults to now, in Unix seconds.
	assert.InDelta(t, time.Now().Unix(), got.LastChecked, 5)
}

func TestStoreGetMissing(t *testing.T) {
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("nonsuch")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreDelete(t *testing.T) {
	s, err := OpenMem()
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(&Entry{AssetID: "x", Fingerprint: "1"}))
	require.NoError(t, s.Delete("x"))

	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStorePersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put(&Entry{AssetID: "core", Fingerprint: "1.21.1/92"}))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("core")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1.21.1/92", got.Fingerprint)
}

func TestEntryCheckFiles(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "plugins/a.jar", []byte("jar"), 0644))

	e := &Entry{Files: []string{"plugins/a.jar"}}
	assert.True(t, e.CheckFiles(fs))

	e.Files = append(e.Files, "plugins/b.jar")
	assert.False(t, e.CheckFiles(fs))
}
