package provider

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

const modrinthBaseURL = "https://api.modrinth.com"

type mrProject struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type mrFile struct {
	URL      string            `json:"url"`
	Filename string            `json:"filename"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"`
}

type mrVersion struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	Name          string   `json:"name"`
	VersionNumber string   `json:"version_number"`
	VersionType   string   `json:"version_type"`
	GameVersions  []string `json:"game_versions"`
	Files         []mrFile `json:"files"`
}

func (v *mrVersion) primary() *mrFile {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	return nil
}

type mrRef struct {
	project mrProject
	version mrVersion
}

// Modrinth resolves assets through the Modrinth (labrinth) v2 API.
type Modrinth struct {
	Client  *Client
	BaseURL string
}

func (p *Modrinth) base() string {
	if p.BaseURL != "" {
		return strings.TrimSuffix(p.BaseURL, "/")
	}
	return modrinthBaseURL
}

func strlist(ls []string) string {
	quoted := make([]string, len(ls))
	for i, v := range ls {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func (p *Modrinth) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	var project mrProject
	u := fmt.Sprintf("%s/v2/project/%s", p.base(), url.PathEscape(a.ProjectID))
	if err := p.Client.GetJSON(ctx, u, nil, &project); err != nil {
		return Ref{}, resolveErr(err)
	}

	q := url.Values{}
	if loaders := p.loaders(a); len(loaders) > 0 {
		q.Set("loaders", strlist(loaders))
	}
	if !a.IgnoreGameVersion {
		q.Set("game_versions", strlist([]string{env.MCVersion}))
	}
	vu := fmt.Sprintf("%s/v2/project/%s/version", p.base(), url.PathEscape(a.ProjectID))
	if len(q) > 0 {
		vu += "?" + q.Encode()
	}
	var versions []mrVersion
	if err := p.Client.GetJSON(ctx, vu, nil, &versions); err != nil {
		return Ref{}, resolveErr(err)
	}

	ver, err := pickVersion(a, versions)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Fingerprint: ver.ID, Data: mrRef{project: project, version: *ver}}, nil
}

func (p *Modrinth) loaders(a *pack.Asset) []string {
	if len(a.Loaders) > 0 {
		return a.Loaders
	}
	if a.Group == pack.GroupPlugins {
		return []string{"spigot", "paper"}
	}
	return nil
}

func pickVersion(a *pack.Asset, versions []mrVersion) (*mrVersion, error) {
	var namePattern *regexp.Regexp
	if a.VersionNamePattern != "" {
		namePattern = regexp.MustCompile(a.VersionNamePattern)
	}
	var filtered []mrVersion
	for _, v := range versions {
		if a.Channel != "" && a.Channel != v.VersionType {
			continue
		}
		if a.VersionIsID && a.Version != v.ID {
			continue
		}
		if namePattern != nil && !namePattern.MatchString(v.Name) {
			continue
		}
		filtered = append(filtered, v)
	}
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: no versions of %s match", servpack.ErrAssetNotFound, a.ProjectID)
	}
	if a.Version == "latest" || a.VersionIsID {
		return &filtered[0], nil
	}
	for i := range filtered {
		if filtered[i].VersionNumber == a.Version {
			return &filtered[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no version numbered %q in %d candidates", servpack.ErrAssetNotFound, a.Version, len(filtered))
}

func (p *Modrinth) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	mr, ok := ref.Data.(mrRef)
	if !ok {
		return nil, fmt.Errorf("modrinth: bad ref")
	}
	file := mr.version.primary()
	if file == nil {
		return nil, fmt.Errorf("%w: version %q has no primary file", servpack.ErrSelectorMatchedNothing, mr.version.Name)
	}
	fpath, sums, err := p.Client.Download(ctx, file.URL, nil, t, file.Filename)
	if err != nil {
		return nil, fetchErr(err)
	}
	if want := file.Hashes["sha1"]; want != "" && want != FindSum(sums, "sha1") {
		return nil, fmt.Errorf("%w: %s", servpack.ErrSumsMismatch, file.Filename)
	}
	res := &servpack.Result{Fingerprint: mr.version.ID}
	res.AddFile(fpath, true, sums)
	res.Extra = map[string]cty.Value{
		"version_id":     cty.StringVal(mr.version.ID),
		"version_number": cty.StringVal(mr.version.VersionNumber),
		"version_name":   cty.StringVal(mr.version.Name),
		"project_id":     cty.StringVal(mr.project.ID),
		"project_title":  cty.StringVal(mr.project.Title),
	}
	return res, nil
}

func (p *Modrinth) NeedsUpdate(ref Ref, cached string) bool {
	return ref.Fingerprint != cached
}
