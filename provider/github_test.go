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
)

const protocolLibRelease = `{
	"tag_name": "5.3.0",
	"name": "ProtocolLib 5.3.0",
	"prerelease": false,
	"assets": [
		{"name": "ProtocolLib.jar", "url": "%[1]s/download/ProtocolLib.jar"},
		{"name": "ProtocolLib-sources.jar", "url": "%[1]s/download/ProtocolLib-sources.jar"},
		{"name": "checksums.txt", "url": "%[1]s/download/checksums.txt"}
	]
}`

func githubTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/repos/dmulloy2/ProtocolLib/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, protocolLibRelease, srv.URL)
	})
	mux.HandleFunc("/repos/dmulloy2/ProtocolLib/releases/tags/5.2.0", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "5.2.0", "assets": [{"name": "ProtocolLib.jar", "url": "`+srv.URL+`/download/ProtocolLib.jar"}]}`)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Accept"))
		fmt.Fprint(w, "jar bytes")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGithubInstall(t *testing.T) {
	srv := githubTestServer(t)
	p := &GithubReleases{Client: &Client{}, BaseURL: srv.URL}
	a := loadAsset(t, "plugin", `
		type       = "github"
		repository = "dmulloy2/ProtocolLib"
		version    = "latest"
	`)
	env := testEnv()

	ref, err := p.Resolve(context.Background(), a, env)
	require.NoError(t, err)
	assert.Equal(t, "5.3.0", ref.Fingerprint)

	tgt, fs := testTarget(a.FolderPath())
	res, err := p.Fetch(context.Background(), ref, a, env, tgt)
	require.NoError(t, err)

	// The default simple-jar selector drops side files.
	assert.Equal(t, []string{"plugins/ProtocolLib.jar"}, res.Files)
	assert.Equal(t, "jar bytes", readFile(t, fs, "plugins/ProtocolLib.jar"))
	assert.Equal(t, cty.StringVal("5.3.0"), res.Extra["tag_name"])

	assert.False(t, p.NeedsUpdate(ref, "5.3.0"))
	assert.True(t, p.NeedsUpdate(ref, "5.2.0"))
}

func TestGithubResolveTag(t *testing.T) {
	srv := githubTestServer(t)
	p := &GithubReleases{Client: &Client{}, BaseURL: srv.URL}
	a := loadAsset(t, "plugin", `
		type       = "github"
		repository = "dmulloy2/ProtocolLib"
		version    = "5.2.0"
	`)

	ref, err := p.Resolve(context.Background(), a, testEnv())
	require.NoError(t, err)
	assert.Equal(t, "5.2.0", ref.Fingerprint)
}

func TestGithubAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"tag_name": "1.0.0", "assets": []}`)
	}))
	defer srv.Close()

	p := &GithubReleases{Client: &Client{}, BaseURL: srv.URL}
	a := loadAsset(t, "plugin", `
		type       = "github"
		repository = "dmulloy2/ProtocolLib"
		version    = "latest"
	`)
	env := testEnv()
	env.Auth = map[string]string{"github": "ghp_secret"}

	_, err := p.Resolve(context.Background(), a, env)
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_secret", gotAuth)
}

func TestGithubNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := &GithubReleases{Client: &Client{}, BaseURL: srv.URL}
	a := loadAsset(t, "plugin", `
		type       = "github"
		repository = "nonsuch/repo"
		version    = "latest"
	`)

	_, err := p.Resolve(context.Background(), a, testEnv())
	assert.ErrorIs(t, err, servpack.ErrAssetNotFound)
}

func TestGithubSelectorMatchedNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name": "1.0.0", "assets": [{"name": "readme.txt"}]}`)
	}))
	defer srv.Close()

	p := &GithubReleases{Client: &Client{}, BaseURL: srv.URL}
	a := loadAsset(t, "plugin", `
		type       = "github"
		repository = "a/b"
		version    = "latest"
	`)
	env := testEnv()

	ref, err := p.Resolve(context.Background(), a, env)
	require.NoError(t, err)
	tgt, _ := testTarget("plugins")
	_, err = p.Fetch(context.Background(), ref, a, env, tgt)
	assert.ErrorIs(t, err, servpack.ErrSelectorMatchedNothing)
}
