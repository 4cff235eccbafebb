package provider

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

func testEnv() *servpack.Environment {
	return &servpack.Environment{
		Profile:   "default",
		MCVersion: "1.21.1",
		Auth:      servpack.Auth{},
		UserAgent: "servpack-test",
	}
}

// loadAsset builds a single-asset manifest from the given block body so
// tests go through the same validation and defaulting as real runs.
func loadAsset(t *testing.T, group, body string) *pack.Asset {
	t.Helper()
	src := fmt.Sprintf("mc_version = %q\n%s {\n%s\n}\n", "1.21.1", group, body)
	m, err := pack.Load([]byte(src), "manifest.pack")
	require.NoError(t, err)
	assets := m.Assets()
	require.Len(t, assets, 1)
	return assets[0]
}

func testTarget(folder string) (Target, billy.Filesystem) {
	fs := memfs.New()
	return Target{Fs: fs, Folder: folder}, fs
}

func readFile(t *testing.T, fs billy.Filesystem, path string) string {
	t.Helper()
	b, err := util.ReadFile(fs, path)
	require.NoError(t, err)
	return string(b)
}

func sha1hex(s string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(s)))
}

func sha256hex(s string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(s)))
}

func TestTargetPath(t *testing.T) {
	tgt, _ := testTarget("plugins")
	assert.Equal(t, "plugins/a.jar", tgt.path("a.jar"))

	root, _ := testTarget("")
	assert.Equal(t, "server.jar", root.path("server.jar"))
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry(&Client{})
	assert.Equal(t, []string{
		"github", "github-actions", "html", "jenkins",
		"modrinth", "note", "paper", "purpur", "url",
	}, r.Names())
}

func TestVerifySums(t *testing.T) {
	computed := map[string][]string{
		"plugins/a.jar": {"sha1:aa", "sha256:bb"},
	}
	assert.NoError(t, VerifySums(nil, computed))
	assert.NoError(t, VerifySums([]string{"sha256:bb"}, computed))
	assert.ErrorIs(t, VerifySums([]string{"sha256:cc"}, computed), servpack.ErrSumsMismatch)
}

func TestFindSum(t *testing.T) {
	sums := []string{"md5:11", "sha1:22", "sha256:33"}
	assert.Equal(t, "22", FindSum(sums, "sha1"))
	assert.Equal(t, "", FindSum(sums, "keccak256"))
}

func TestWriteHashed(t *testing.T) {
	tgt, fs := testTarget("mods")
	fpath, sums, err := writeHashed(tgt, "a.jar", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "mods/a.jar", fpath)
	assert.Equal(t, "payload", readFile(t, fs, "mods/a.jar"))
	assert.Equal(t, sha256hex("payload"), FindSum(sums, "sha256"))
	assert.Equal(t, sha1hex("payload"), FindSum(sums, "sha1"))
}
