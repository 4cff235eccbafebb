package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

const githubBaseURL = "https://api.github.com"

type ghAsset struct {
	Name               string `json:"name"`
	URL                string `json:"url"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

type ghRelease struct {
	TagName    string    `json:"tag_name"`
	Name       string    `json:"name"`
	Prerelease bool      `json:"prerelease"`
	Assets     []ghAsset `json:"assets"`
}

// GithubReleases installs assets attached to GitHub releases.
type GithubReleases struct {
	Client  *Client
	BaseURL string
}

func (p *GithubReleases) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return githubBaseURL
}

func githubHeaders(env *servpack.Environment, accept string) map[string]string {
	h := map[string]string{
		"Accept":               accept,
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token := env.Auth.Token("github"); token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

func (p *GithubReleases) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	var u string
	if a.Version == "latest" {
		u = fmt.Sprintf("%s/repos/%s/releases/latest", p.base(), a.Repository)
	} else {
		u = fmt.Sprintf("%s/repos/%s/releases/tags/%s", p.base(), a.Repository, url.PathEscape(a.Version))
	}
	var release ghRelease
	if err := p.Client.GetJSON(ctx, u, githubHeaders(env, "application/vnd.github+json"), &release); err != nil {
		return Ref{}, resolveErr(err)
	}
	return Ref{Fingerprint: release.TagName, Data: release}, nil
}

func (p *GithubReleases) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	release, ok := ref.Data.(ghRelease)
	if !ok {
		return nil, fmt.Errorf("github: bad ref")
	}
	byName := make(map[string]ghAsset, len(release.Assets))
	names := make([]string, 0, len(release.Assets))
	for _, ra := range release.Assets {
		byName[ra.Name] = ra
		names = append(names, ra.Name)
	}
	selected := a.Select(names)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: release %q has %d assets", servpack.ErrSelectorMatchedNothing, release.TagName, len(names))
	}
	headers := githubHeaders(env, "application/octet-stream")
	res := &servpack.Result{Fingerprint: release.TagName}
	for _, name := range selected {
		ra := byName[name]
		dlURL := ra.URL
		if dlURL == "" {
			dlURL = ra.BrowserDownloadURL
		}
		fpath, sums, err := p.Client.Download(ctx, dlURL, headers, t, name)
		if err != nil {
			return nil, fetchErr(err)
		}
		res.AddFile(fpath, true, sums)
	}
	res.Extra = map[string]cty.Value{
		"tag_name":     cty.StringVal(release.TagName),
		"release_name": cty.StringVal(release.Name),
		"prerelease":   cty.BoolVal(release.Prerelease),
	}
	return res, nil
}

func (p *GithubReleases) NeedsUpdate(ref Ref, cached string) bool {
	return ref.Fingerprint != cached
}
