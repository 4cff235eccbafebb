package provider

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"path"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

// DirectURL installs a file from a fixed URL. The remote version is
// identified by the ETag or Last-Modified header when the server sends
// one; otherwise the digest of the downloaded payload stands in.
type DirectURL struct {
	Client *Client
}

// urlFileName derives the target file name. Underivable names are a
// load-time manifest error; this repeats the check so a hand-built
// asset fails the fetch instead of writing a garbage path.
func urlFileName(a *pack.Asset, rawURL string) (string, error) {
	if a.FileName != "" {
		return a.FileName, nil
	}
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q", servpack.ErrDownloadFailed, rawURL)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("%w: cannot derive file name from %q, set file_name", servpack.ErrDownloadFailed, rawURL)
	}
	return name, nil
}

func (p *DirectURL) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	resp, err := p.Client.Do(ctx, http.MethodHead, a.URL, nil)
	if err != nil {
		return Ref{}, resolveErr(err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Ref{}, resolveErr(&StatusError{Code: resp.StatusCode, URL: a.URL})
	}
	fingerprint := resp.Header.Get("ETag")
	if fingerprint == "" {
		fingerprint = resp.Header.Get("Last-Modified")
	}
	return Ref{Fingerprint: fingerprint}, nil
}

func (p *DirectURL) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	name, err := urlFileName(a, a.URL)
	if err != nil {
		return nil, err
	}
	fpath, sums, err := p.Client.Download(ctx, a.URL, nil, t, name)
	if err != nil {
		return nil, fetchErr(err)
	}
	res := &servpack.Result{Fingerprint: ref.Fingerprint}
	if res.Fingerprint == "" {
		res.Fingerprint = "sha256:" + FindSum(sums, "sha256")
	}
	res.AddFile(fpath, true, sums)
	return res, nil
}

// NeedsUpdate reports true for servers that expose no version header
// at all; the content digest recorded at fetch time then decides
// whether the file actually changed.
func (p *DirectURL) NeedsUpdate(ref Ref, cached string) bool {
	if ref.Fingerprint == "" {
		return true
	}
	return ref.Fingerprint != cached
}
