package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	servpack "github.com/servpack/servpack"
)

var releaseListing = []string{
	"ProtocolLib.jar",
	"ProtocolLib-sources.jar",
	"ProtocolLib-api.jar",
	"checksums.txt",
}

func TestSimpleJarSelector(t *testing.T) {
	sel, err := newSelector(&AssetBlock{}, "simple-jar")
	require.NoError(t, err)
	assert.Equal(t, []string{"ProtocolLib.jar"}, sel.Filter(releaseListing))
}

func TestAllSelector(t *testing.T) {
	sel, err := newSelector(&AssetBlock{}, "all")
	require.NoError(t, err)
	assert.Equal(t, releaseListing, sel.Filter(releaseListing))
}

func TestPatternSelectorSearch(t *testing.T) {
	sel, err := newSelector(&AssetBlock{FilePattern: `sources`}, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"ProtocolLib-sources.jar"}, sel.Filter(releaseListing))
}

func TestPatternSelectorFull(t *testing.T) {
	sel, err := newSelector(&AssetBlock{FilePattern: `ProtocolLib`, PatternMode: "full"}, "all")
	require.NoError(t, err)
	assert.Empty(t, sel.Filter(releaseListing))

	sel, err = newSelector(&AssetBlock{FilePattern: `ProtocolLib.*\.jar`, PatternMode: "full"}, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ProtocolLib.jar",
		"ProtocolLib-sources.jar",
		"ProtocolLib-api.jar",
	}, sel.Filter(releaseListing))
}

func TestSelectorExclusive(t *testing.T) {
	_, err := newSelector(&AssetBlock{FileSelector: "all", FilePattern: "x"}, "all")
	assert.ErrorIs(t, err, servpack.ErrManifest)
}

func TestBadPattern(t *testing.T) {
	_, err := newSelector(&AssetBlock{FilePattern: "("}, "all")
	assert.ErrorIs(t, err, servpack.ErrManifest)
}

func TestDefaultSelectorByType(t *testing.T) {
	assert.Equal(t, "simple-jar", defaultSelector("github"))
	assert.Equal(t, "simple-jar", defaultSelector("jenkins"))
	assert.Equal(t, "all", defaultSelector("modrinth"))
	assert.Equal(t, "all", defaultSelector("url"))
}
