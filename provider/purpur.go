package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

const purpurBaseURL = "https://api.purpurmc.org"

type purpurBuildInfo struct {
	Build string `json:"build"`
	MD5   string `json:"md5"`
	Type  string `json:"type"`
}

type purpurVersion struct {
	Builds struct {
		Latest purpurBuildInfo   `json:"latest"`
		All    []purpurBuildInfo `json:"all"`
	} `json:"builds"`
}

// Purpur installs the Purpur server jar through the papyrus API.
type Purpur struct {
	Client  *Client
	BaseURL string
}

func (p *Purpur) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return purpurBaseURL
}

func (p *Purpur) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	u := fmt.Sprintf("%s/v2/purpur/%s?detailed=true", p.base(), env.MCVersion)
	var version purpurVersion
	if err := p.Client.GetJSON(ctx, u, nil, &version); err != nil {
		return Ref{}, resolveErr(err)
	}
	build, err := pickPurpurBuild(&version, a)
	if err != nil {
		return Ref{}, err
	}
	return Ref{
		Fingerprint: fmt.Sprintf("%s/%s", env.MCVersion, build.Build),
		Data:        build,
	}, nil
}

func pickPurpurBuild(version *purpurVersion, a *pack.Asset) (purpurBuildInfo, error) {
	if a.Version != "latest" {
		for _, b := range version.Builds.All {
			if b.Build == a.Version {
				return b, nil
			}
		}
		return purpurBuildInfo{}, fmt.Errorf("%w: no purpur build %q", servpack.ErrAssetNotFound, a.Version)
	}
	if latest := version.Builds.Latest; a.AllowExperimental || latest.Type != "experimental" {
		return latest, nil
	}
	// Newest first in all; skip past experimental builds.
	for _, b := range version.Builds.All {
		if b.Type != "experimental" {
			return b, nil
		}
	}
	return purpurBuildInfo{}, fmt.Errorf("%w: only experimental purpur builds available", servpack.ErrAssetNotFound)
}

func (p *Purpur) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	build, ok := ref.Data.(purpurBuildInfo)
	if !ok {
		return nil, fmt.Errorf("purpur: bad ref")
	}
	name := a.FileName
	if name == "" {
		name = fmt.Sprintf("purpur-%s-%s.jar", env.MCVersion, build.Build)
	}
	dlURL := fmt.Sprintf("%s/v2/purpur/%s/%s/download", p.base(), env.MCVersion, build.Build)
	fpath, sums, err := p.Client.Download(ctx, dlURL, nil, t, name)
	if err != nil {
		return nil, fetchErr(err)
	}
	if build.MD5 != "" && !strings.EqualFold(build.MD5, FindSum(sums, "md5")) {
		return nil, fmt.Errorf("%w: %s", servpack.ErrSumsMismatch, name)
	}
	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	res.AddFile(fpath, true, sums)
	res.Extra = map[string]cty.Value{
		"build":        cty.StringVal(build.Build),
		"experimental": cty.BoolVal(build.Type == "experimental"),
	}
	return res, nil
}

func (p *Purpur) NeedsUpdate(ref Ref, cached string) bool {
	return ref.Fingerprint != cached
}
