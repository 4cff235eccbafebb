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

type jenkinsArtifact struct {
	FileName     string `json:"fileName"`
	RelativePath string `json:"relativePath"`
}

type jenkinsBuild struct {
	Number    int               `json:"number"`
	URL       string            `json:"url"`
	Result    string            `json:"result"`
	Artifacts []jenkinsArtifact `json:"artifacts"`
}

type jenkinsJob struct {
	LastSuccessfulBuild *jenkinsBuild `json:"lastSuccessfulBuild"`
}

// Jenkins installs build artifacts from a Jenkins instance.
type Jenkins struct {
	Client *Client
}

// jobURL expands folder segments: "Folder/Job" becomes
// "{host}/job/Folder/job/Job".
func jenkinsJobURL(host, job string) string {
	host = strings.TrimSuffix(host, "/")
	segments := strings.Split(job, "/")
	return host + "/job/" + strings.Join(segments, "/job/")
}

func (p *Jenkins) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	base := jenkinsJobURL(a.URL, a.Job)
	var number int
	if a.Version == "latest" {
		var job jenkinsJob
		if err := p.Client.GetJSON(ctx, base+"/api/json", nil, &job); err != nil {
			return Ref{}, resolveErr(err)
		}
		if job.LastSuccessfulBuild == nil {
			return Ref{}, fmt.Errorf("%w: job %q has no successful builds", servpack.ErrAssetNotFound, a.Job)
		}
		number = job.LastSuccessfulBuild.Number
	} else {
		n, err := strconv.Atoi(a.Version)
		if err != nil {
			return Ref{}, fmt.Errorf("%w: bad build number %q", servpack.ErrAssetNotFound, a.Version)
		}
		number = n
	}
	var build jenkinsBuild
	if err := p.Client.GetJSON(ctx, fmt.Sprintf("%s/%d/api/json", base, number), nil, &build); err != nil {
		return Ref{}, resolveErr(err)
	}
	if build.Result != "SUCCESS" && build.Result != "UNSTABLE" {
		return Ref{}, fmt.Errorf("%w: build %d concluded %q", servpack.ErrAssetNotFound, build.Number, build.Result)
	}
	return Ref{Fingerprint: strconv.Itoa(build.Number), Data: build}, nil
}

func (p *Jenkins) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	build, ok := ref.Data.(jenkinsBuild)
	if !ok {
		return nil, fmt.Errorf("jenkins: bad ref")
	}
	byName := make(map[string]jenkinsArtifact, len(build.Artifacts))
	names := make([]string, 0, len(build.Artifacts))
	for _, art := range build.Artifacts {
		byName[art.FileName] = art
		names = append(names, art.FileName)
	}
	selected := a.Select(names)
	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: build %d has %d artifacts", servpack.ErrSelectorMatchedNothing, build.Number, len(names))
	}
	buildURL := build.URL
	if buildURL == "" {
		buildURL = fmt.Sprintf("%s/%d/", jenkinsJobURL(a.URL, a.Job), build.Number)
	}
	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	for _, name := range selected {
		art := byName[name]
		dlURL := strings.TrimSuffix(buildURL, "/") + "/artifact/" + art.RelativePath
		fpath, sums, err := p.Client.Download(ctx, dlURL, nil, t, name)
		if err != nil {
			return nil, fetchErr(err)
		}
		res.AddFile(fpath, true, sums)
	}
	res.Extra = map[string]cty.Value{
		"build_number": cty.NumberIntVal(int64(build.Number)),
		"build_result": cty.StringVal(build.Result),
	}
	return res, nil
}

// NeedsUpdate compares build numbers numerically.
func (p *Jenkins) NeedsUpdate(ref Ref, cached string) bool {
	remote, err := strconv.Atoi(ref.Fingerprint)
	if err != nil {
		return ref.Fingerprint != cached
	}
	have, err := strconv.Atoi(cached)
	if err != nil {
		return true
	}
	return remote > have
}
