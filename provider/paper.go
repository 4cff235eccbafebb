package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

const paperBaseURL = "https://fill.papermc.io"

type paperDownload struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Checksums struct {
		SHA256 string `json:"sha256"`
	} `json:"checksums"`
}

type paperBuild struct {
	ID        int                      `json:"id"`
	Channel   string                   `json:"channel"`
	Downloads map[string]paperDownload `json:"downloads"`
}

// Paper installs the Paper server jar through the fill API.
type Paper struct {
	Client  *Client
	BaseURL string
}

func (p *Paper) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return paperBaseURL
}

func (p *Paper) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	base := fmt.Sprintf("%s/v3/projects/paper/versions/%s/builds", p.base(), env.MCVersion)
	var build paperBuild
	if n, err := strconv.Atoi(a.Version); err == nil {
		if err := p.Client.GetJSON(ctx, fmt.Sprintf("%s/%d", base, n), nil, &build); err != nil {
			return Ref{}, resolveErr(err)
		}
	} else {
		var builds []paperBuild
		if err := p.Client.GetJSON(ctx, base, nil, &builds); err != nil {
			return Ref{}, resolveErr(err)
		}
		b, err := pickPaperBuild(builds, a)
		if err != nil {
			return Ref{}, err
		}
		build = b
	}
	return Ref{
		Fingerprint: fmt.Sprintf("%s/%d", env.MCVersion, build.ID),
		Data:        build,
	}, nil
}

// pickPaperBuild takes the newest build in an accepted channel. The
// builds endpoint lists newest first.
func pickPaperBuild(builds []paperBuild, a *pack.Asset) (paperBuild, error) {
	accept := func(channel string) bool { return channel == "STABLE" }
	if a.Version == "latest" && len(a.Channels) > 0 {
		accept = func(channel string) bool {
			for _, c := range a.Channels {
				if strings.EqualFold(c, channel) {
					return true
				}
			}
			return false
		}
	} else if a.Version == "latest" {
		accept = func(string) bool { return true }
	}
	for _, b := range builds {
		if accept(b.Channel) {
			return b, nil
		}
	}
	return paperBuild{}, fmt.Errorf("%w: no paper build in accepted channels", servpack.ErrAssetNotFound)
}

func (p *Paper) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	build, ok := ref.Data.(paperBuild)
	if !ok {
		return nil, fmt.Errorf("paper: bad ref")
	}
	dl, ok := build.Downloads["server:default"]
	if !ok {
		return nil, fmt.Errorf("%w: build %d has no server download", servpack.ErrAssetNotFound, build.ID)
	}
	name := a.FileName
	if name == "" {
		name = dl.Name
	}
	fpath, sums, err := p.Client.Download(ctx, dl.URL, nil, t, name)
	if err != nil {
		return nil, fetchErr(err)
	}
	if want := dl.Checksums.SHA256; want != "" && want != FindSum(sums, "sha256") {
		return nil, fmt.Errorf("%w: %s", servpack.ErrSumsMismatch, name)
	}
	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	res.AddFile(fpath, true, sums)
	res.Extra = map[string]cty.Value{
		"build":   cty.NumberIntVal(int64(build.ID)),
		"channel": cty.StringVal(build.Channel),
	}
	return res, nil
}

// NeedsUpdate treats a Minecraft version change as an update even when
// the build counter reset.
func (p *Paper) NeedsUpdate(ref Ref, cached string) bool {
	return ref.Fingerprint != cached
}
