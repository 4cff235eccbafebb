package servpack

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestResultPrimaryFile(t *testing.T) {
	var r Result
	_, err := r.PrimaryFile()
	assert.ErrorIs(t, err, ErrNoFiles)

	r.AddFile("plugins/a.jar", true, nil)
	f, err := r.PrimaryFile()
	require.NoError(t, err)
	assert.Equal(t, "plugins/a.jar", f)

	r.AddFile("plugins/b.jar", true, nil)
	_, err = r.PrimaryFile()
	assert.ErrorIs(t, err, ErrAmbiguousPrimaryFile)

	f, err = r.FirstFile()
	require.NoError(t, err)
	assert.Equal(t, "plugins/a.jar", f)
}

func TestResultRename(t *testing.T) {
	var r Result
	r.AddFile("plugins/a.jar", true, []string{"sha256:aa"})
	r.Rename("plugins/a.jar", "plugins/b.jar")

	assert.Equal(t, []string{"plugins/b.jar"}, r.Files)
	assert.Equal(t, []string{"plugins/b.jar"}, r.Primary)
	assert.Equal(t, []string{"sha256:aa"}, r.Sums["plugins/b.jar"])
	assert.NotContains(t, r.Sums, "plugins/a.jar")
}

func TestResultRemoveFile(t *testing.T) {
	var r Result
	r.AddFile("pack.zip", true, []string{"md5:11"})
	r.AddFile("data/x.json", false, nil)
	r.RemoveFile("pack.zip")

	assert.Equal(t, []string{"data/x.json"}, r.Files)
	assert.Empty(t, r.Primary)
	assert.NotContains(t, r.Sums, "pack.zip")
}

func TestResultCtyVal(t *testing.T) {
	var r Result
	v := r.CtyVal()
	assert.True(t, v.GetAttr("first_file").IsNull())

	r.AddFile("plugins/a.jar", true, nil)
	r.Extra = map[string]cty.Value{"tag_name": cty.StringVal("1.0")}
	v = r.CtyVal()
	assert.Equal(t, cty.StringVal("a.jar"), v.GetAttr("first_file"))
	assert.Equal(t, cty.StringVal("1.0"), v.GetAttr("tag_name"))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, "manifest", Kind(fmt.Errorf("%w: bad", ErrManifest)))
	assert.Equal(t, "asset_not_found", Kind(ErrAssetNotFound))
	assert.Equal(t, "sums_mismatch", Kind(ErrSumsMismatch))
	assert.Equal(t, "error", Kind(errors.New("boom")))
}

func TestAuthToken(t *testing.T) {
	a := Auth{"github": "tok"}
	assert.Equal(t, "tok", a.Token("github"))
	assert.Equal(t, "", a.Token("jenkins"))
	assert.Equal(t, "", Auth(nil).Token("github"))
}

func TestEnvironmentCtyValHidesAuth(t *testing.T) {
	env := &Environment{Profile: "default", MCVersion: "1.21.1", Auth: Auth{"github": "tok"}}
	v := env.CtyVal()
	assert.Equal(t, cty.StringVal("1.21.1"), v.GetAttr("mc_version"))
	assert.False(t, v.Type().HasAttribute("auth"))
	assert.False(t, v.Type().HasAttribute("token"))
}
