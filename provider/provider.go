// Package provider implements the remote services an asset can be
// installed from. Each provider resolves an asset declaration to a
// concrete remote artifact, downloads it, and answers update checks
// against a cached version fingerprint.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-git/go-billy/v5"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

// Ref is an opaque reference to a resolved remote artifact. Data is
// consumed only by the provider that produced it.
type Ref struct {
	// Fingerprint identifies the remote version, e.g. a release tag or
	// build number. Empty means unknown.
	Fingerprint string
	// Note carries the message of a note asset; such refs are never
	// fetched.
	Note string
	Data interface{}
}

// Target is the destination of a fetch: the server filesystem and the
// folder implied by the asset's group (empty for the server root).
type Target struct {
	Fs     billy.Filesystem
	Folder string
}

func (t Target) path(name string) string {
	if t.Folder == "" {
		return name
	}
	return t.Fs.Join(t.Folder, name)
}

// Provider is the closed capability contract of a remote service.
type Provider interface {
	// Resolve queries the remote service and returns an artifact
	// reference with a version fingerprint. It must not download
	// payload bytes.
	Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error)
	// Fetch downloads the artifact's files into the target, applying
	// the asset's file selector when the remote listing has several.
	Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error)
	// NeedsUpdate compares the resolved reference against a cached
	// fingerprint. Pure; no I/O beyond what Resolve already did.
	NeedsUpdate(ref Ref, cached string) bool
}

// Registry maps manifest type discriminators to providers.
type Registry struct {
	m map[string]Provider
}

// NewRegistry builds the built-in provider set on top of one shared
// HTTP client.
func NewRegistry(c *Client) *Registry {
	r := &Registry{m: map[string]Provider{}}
	r.Register("modrinth", &Modrinth{Client: c})
	r.Register("github", &GithubReleases{Client: c})
	r.Register("github-actions", &GithubActions{Client: c})
	r.Register("jenkins", &Jenkins{Client: c})
	r.Register("url", &DirectURL{Client: c})
	r.Register("html", &HTMLPage{Client: c})
	r.Register("note", &Note{})
	r.Register("paper", &Paper{Client: c})
	r.Register("purpur", &Purpur{Client: c})
	return r
}

func (r *Registry) Register(name string, p Provider) {
	r.m[name] = p
}

func (r *Registry) Get(typ string) (Provider, bool) {
	p, ok := r.m[typ]
	return p, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.m))
	for k := range r.m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var errKinds = []error{
	servpack.ErrAssetNotFound,
	servpack.ErrProviderUnavailable,
	servpack.ErrDownloadFailed,
	servpack.ErrSelectorMatchedNothing,
	servpack.ErrSumsMismatch,
}

// resolveErr classifies a low-level resolve failure: 404 means the
// selector matched nothing remote, everything else is the service
// being unavailable.
func resolveErr(err error) error {
	for _, kind := range errKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	var se *StatusError
	if errors.As(err, &se) && se.Code == 404 {
		return fmt.Errorf("%w: %v", servpack.ErrAssetNotFound, err)
	}
	return fmt.Errorf("%w: %v", servpack.ErrProviderUnavailable, err)
}

func fetchErr(err error) error {
	for _, kind := range errKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", servpack.ErrDownloadFailed, err)
}
