package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

func modrinthAsset(t *testing.T, body string) *pack.Asset {
	t.Helper()
	return loadAsset(t, "plugin", `
		type       = "modrinth"
		project_id = "P7dR8mSH"
`+body)
}

func TestModrinthResolveFetch(t *testing.T) {
	const payload = "fabric api bytes"
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/v2/project/P7dR8mSH", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "P7dR8mSH", "slug": "fabric-api", "title": "Fabric API"}`)
	})
	mux.HandleFunc("/v2/project/P7dR8mSH/version", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `["spigot","paper"]`, q.Get("loaders"))
		assert.Equal(t, `["1.21.1"]`, q.Get("game_versions"))
		fmt.Fprintf(w, `[
			{
				"id": "v2", "project_id": "P7dR8mSH", "name": "Release 2.0",
				"version_number": "2.0", "version_type": "release",
				"files": [{"url": "%[1]s/dl/fabric-api-2.0.jar", "filename": "fabric-api-2.0.jar", "primary": true, "hashes": {"sha1": "%[2]s"}}]
			},
			{
				"id": "v1", "project_id": "P7dR8mSH", "name": "Release 1.0",
				"version_number": "1.0", "version_type": "release",
				"files": [{"url": "%[1]s/dl/fabric-api-1.0.jar", "filename": "fabric-api-1.0.jar", "primary": true, "hashes": {}}]
			}
		]`, srv.URL, sha1hex(payload))
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := &Modrinth{Client: &Client{}, BaseURL: srv.URL}
	a := modrinthAsset(t, `version = "latest"`)
	env := testEnv()

	ref, err := p.Resolve(context.Background(), a, env)
	require.NoError(t, err)
	assert.Equal(t, "v2", ref.Fingerprint)

	tgt, fs := testTarget("plugins")
	res, err := p.Fetch(context.Background(), ref, a, env, tgt)
	require.NoError(t, err)
	assert.Equal(t, []string{"plugins/fabric-api-2.0.jar"}, res.Files)
	assert.Equal(t, payload, readFile(t, fs, "plugins/fabric-api-2.0.jar"))
	assert.Equal(t, cty.StringVal("2.0"), res.Extra["version_number"])
	assert.Equal(t, cty.StringVal("Fabric API"), res.Extra["project_title"])
}

func TestModrinthChecksumMismatch(t *testing.T) {
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/v2/project/P7dR8mSH", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "P7dR8mSH"}`)
	})
	mux.HandleFunc("/v2/project/P7dR8mSH/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{
			"id": "v1", "version_number": "1.0", "version_type": "release",
			"files": [{"url": "%s/dl/a.jar", "filename": "a.jar", "primary": true, "hashes": {"sha1": "deadbeef"}}]
		}]`, srv.URL)
	})
	mux.HandleFunc("/dl/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "actual bytes")
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	p := &Modrinth{Client: &Client{}, BaseURL: srv.URL}
	a := modrinthAsset(t, `version = "latest"`)
	env := testEnv()

	ref, err := p.Resolve(context.Background(), a, env)
	require.NoError(t, err)
	tgt, _ := testTarget("plugins")
	_, err = p.Fetch(context.Background(), ref, a, env, tgt)
	assert.ErrorIs(t, err, servpack.ErrSumsMismatch)
}

func mrv(id, number, typ, name string) mrVersion {
	return mrVersion{ID: id, VersionNumber: number, VersionType: typ, Name: name}
}

func TestPickVersion(t *testing.T) {
	versions := []mrVersion{
		mrv("v3", "3.0-beta", "beta", "Beta 3.0"),
		mrv("v2", "2.0", "release", "Release 2.0"),
		mrv("v1", "1.0", "release", "Release 1.0"),
	}

	latest := modrinthAsset(t, `version = "latest"`)
	v, err := pickVersion(latest, versions)
	require.NoError(t, err)
	assert.Equal(t, "v3", v.ID)

	stable := modrinthAsset(t, `
		version = "latest"
		channel = "release"
	`)
	v, err = pickVersion(stable, versions)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)

	pinned := modrinthAsset(t, `version = "1.0"`)
	v, err = pickVersion(pinned, versions)
	require.NoError(t, err)
	assert.Equal(t, "v1", v.ID)

	byID := modrinthAsset(t, `
		version       = "v2"
		version_is_id = true
	`)
	v, err = pickVersion(byID, versions)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)

	byName := modrinthAsset(t, `
		version              = "latest"
		version_name_pattern = "^Release"
	`)
	v, err = pickVersion(byName, versions)
	require.NoError(t, err)
	assert.Equal(t, "v2", v.ID)

	missing := modrinthAsset(t, `version = "9.9"`)
	_, err = pickVersion(missing, versions)
	assert.ErrorIs(t, err, servpack.ErrAssetNotFound)
}

func TestModrinthIgnoreGameVersion(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/project/P7dR8mSH", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "P7dR8mSH"}`)
	})
	mux.HandleFunc("/v2/project/P7dR8mSH/version", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"id": "v1", "version_number": "1.0", "version_type": "release", "files": []}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &Modrinth{Client: &Client{}, BaseURL: srv.URL}
	a := modrinthAsset(t, `
		version             = "latest"
		ignore_game_version = true
		loaders             = ["fabric"]
	`)

	_, err := p.Resolve(context.Background(), a, testEnv())
	require.NoError(t, err)
	assert.NotContains(t, gotQuery, "game_versions")
	assert.Contains(t, gotQuery, "loaders")
}
