package provider

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5/util"
	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

type ghWorkflowRun struct {
	ID         int64  `json:"id"`
	RunNumber  int    `json:"run_number"`
	HeadBranch string `json:"head_branch"`
	HeadSHA    string `json:"head_sha"`
	Conclusion string `json:"conclusion"`
}

type ghWorkflowRuns struct {
	TotalCount   int             `json:"total_count"`
	WorkflowRuns []ghWorkflowRun `json:"workflow_runs"`
}

type ghArtifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Expired            bool   `json:"expired"`
	ArchiveDownloadURL string `json:"archive_download_url"`
}

type ghArtifacts struct {
	TotalCount int          `json:"total_count"`
	Artifacts  []ghArtifact `json:"artifacts"`
}

// GithubActions installs files from workflow run artifacts.
type GithubActions struct {
	Client  *Client
	BaseURL string
}

func (p *GithubActions) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return githubBaseURL
}

func (p *GithubActions) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	headers := githubHeaders(env, "application/vnd.github+json")
	var run ghWorkflowRun
	if a.Version == "latest" {
		u := fmt.Sprintf("%s/repos/%s/actions/workflows/%s/runs?branch=%s&status=success&per_page=1",
			p.base(), a.Repository, a.Workflow, a.Branch)
		var runs ghWorkflowRuns
		if err := p.Client.GetJSON(ctx, u, headers, &runs); err != nil {
			return Ref{}, resolveErr(err)
		}
		if len(runs.WorkflowRuns) == 0 {
			return Ref{}, fmt.Errorf("%w: no successful runs of %s on %s", servpack.ErrAssetNotFound, a.Workflow, a.Branch)
		}
		run = runs.WorkflowRuns[0]
	} else {
		u := fmt.Sprintf("%s/repos/%s/actions/runs/%s", p.base(), a.Repository, a.Version)
		if err := p.Client.GetJSON(ctx, u, headers, &run); err != nil {
			return Ref{}, resolveErr(err)
		}
		if run.Conclusion != "success" {
			return Ref{}, fmt.Errorf("%w: run %d concluded %q", servpack.ErrAssetNotFound, run.ID, run.Conclusion)
		}
	}
	return Ref{Fingerprint: strconv.FormatInt(run.ID, 10), Data: run}, nil
}

func (p *GithubActions) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	run, ok := ref.Data.(ghWorkflowRun)
	if !ok {
		return nil, fmt.Errorf("github-actions: bad ref")
	}
	headers := githubHeaders(env, "application/vnd.github+json")
	u := fmt.Sprintf("%s/repos/%s/actions/runs/%d/artifacts", p.base(), a.Repository, run.ID)
	var arts ghArtifacts
	if err := p.Client.GetJSON(ctx, u, headers, &arts); err != nil {
		return nil, fetchErr(err)
	}
	artifact, err := pickArtifact(arts.Artifacts, a)
	if err != nil {
		return nil, err
	}
	if artifact.Expired {
		return nil, fmt.Errorf("%w: artifact %q of run %d has expired", servpack.ErrAssetNotFound, artifact.Name, run.ID)
	}

	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	if err := p.fetchArtifact(ctx, artifact, a, env, t, res); err != nil {
		return nil, err
	}
	res.Extra = map[string]cty.Value{
		"run_id":     cty.NumberIntVal(run.ID),
		"run_number": cty.NumberIntVal(int64(run.RunNumber)),
		"branch":     cty.StringVal(run.HeadBranch),
		"commit":     cty.StringVal(run.HeadSHA),
	}
	return res, nil
}

// pickArtifact matches name_pattern as an unanchored regular
// expression, the same form it is validated as at load time.
func pickArtifact(artifacts []ghArtifact, a *pack.Asset) (ghArtifact, error) {
	if len(artifacts) == 0 {
		return ghArtifact{}, fmt.Errorf("%w: run has no artifacts", servpack.ErrAssetNotFound)
	}
	if a.NamePattern == "" {
		return artifacts[0], nil
	}
	re, err := regexp.Compile(a.NamePattern)
	if err != nil {
		return ghArtifact{}, fmt.Errorf("bad name_pattern %q: %w", a.NamePattern, err)
	}
	for _, art := range artifacts {
		if re.MatchString(art.Name) {
			return art, nil
		}
	}
	return ghArtifact{}, fmt.Errorf("%w: no artifact matches %q", servpack.ErrAssetNotFound, a.NamePattern)
}

// fetchArtifact downloads the artifact archive into a temporary file and
// extracts the selected entries into the target.
func (p *GithubActions) fetchArtifact(ctx context.Context, artifact ghArtifact, a *pack.Asset, env *servpack.Environment, t Target, res *servpack.Result) error {
	resp, err := p.Client.Do(ctx, http.MethodGet, artifact.ArchiveDownloadURL, githubHeaders(env, "application/vnd.github+json"))
	if err != nil {
		return fetchErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusGone {
		return fmt.Errorf("%w: artifact %q has expired", servpack.ErrAssetNotFound, artifact.Name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fetchErr(&StatusError{Code: resp.StatusCode, URL: artifact.ArchiveDownloadURL})
	}

	tmp, err := util.TempFile(t.Fs, "", "servpack-artifact-")
	if err != nil {
		return fetchErr(err)
	}
	defer func() {
		tmp.Close()
		t.Fs.Remove(tmp.Name())
	}()
	size, err := io.Copy(tmp, resp.Body)
	if err != nil {
		return fetchErr(err)
	}
	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return fmt.Errorf("%w: %v", servpack.ErrExtractionFailed, err)
	}

	names := make([]string, 0, len(zr.File))
	byName := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := path.Base(zf.Name)
		names = append(names, name)
		byName[name] = zf
	}
	selected := a.Select(names)
	if len(selected) == 0 {
		return fmt.Errorf("%w: artifact %q has %d files", servpack.ErrSelectorMatchedNothing, artifact.Name, len(names))
	}
	for _, name := range selected {
		if err := extractZipFile(byName[name], t, name, res); err != nil {
			return err
		}
	}
	return nil
}

// NeedsUpdate compares run IDs numerically so that a re-run of an old
// workflow never downgrades the installed artifact.
func (p *GithubActions) NeedsUpdate(ref Ref, cached string) bool {
	remote, err := strconv.ParseInt(ref.Fingerprint, 10, 64)
	if err != nil {
		return ref.Fingerprint != cached
	}
	have, err := strconv.ParseInt(cached, 10, 64)
	if err != nil {
		return true
	}
	return remote > have
}

func extractZipFile(zf *zip.File, t Target, name string, res *servpack.Result) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", servpack.ErrExtractionFailed, err)
	}
	defer rc.Close()
	fpath, sums, err := writeHashed(t, name, rc)
	if err != nil {
		return fetchErr(err)
	}
	res.AddFile(fpath, true, sums)
	return nil
}
