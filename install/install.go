// Package install drives a whole manifest: it resolves every declared
// asset against its provider, decides from the cache store whether a
// fetch is needed, downloads, runs post-download actions and records
// the outcome.
package install

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/action"
	"github.com/servpack/servpack/expr"
	"github.com/servpack/servpack/pack"
	"github.com/servpack/servpack/provider"
	"github.com/servpack/servpack/store"
)

// Status is the per-asset outcome of a run.
type Status string

const (
	StatusInstalled       Status = "installed"
	StatusUpToDate        Status = "up to date"
	StatusUpdateAvailable Status = "update available"
	StatusSkipped         Status = "skipped"
	StatusExcluded        Status = "excluded"
	StatusNote            Status = "note"
	StatusFailed          Status = "failed"
)

// Item is the outcome for one asset.
type Item struct {
	ID     string
	Group  pack.Group
	Status Status
	// Fingerprint is the remote version the status refers to.
	Fingerprint string
	Err         error
}

// Report is the outcome of a whole run.
type Report struct {
	Items []Item
	// Notes are the expanded messages of note assets, shown after the
	// run summary.
	Notes []string
}

// Failed reports whether any asset failed.
func (r *Report) Failed() bool {
	for _, it := range r.Items {
		if it.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Installer holds everything one run needs. Files is the server root.
type Installer struct {
	Manifest  *pack.Manifest
	Env       *servpack.Environment
	Files     billy.Filesystem
	Store     *store.Store
	Providers *provider.Registry
}

func (ins *Installer) pipeline() *action.Pipeline {
	return &action.Pipeline{Fs: ins.Files, Env: ins.Env}
}

// Install fetches every asset that is not already installed according
// to the cache store. Failures are collected per asset; one broken
// asset does not stop the rest.
func (ins *Installer) Install(ctx context.Context) *Report {
	report := &Report{}
	base := expr.NewEvalContext(ins.Env)
	for _, a := range ins.Manifest.Assets() {
		report.add(ins.installOne(ctx, a, base, report))
	}
	return report
}

// Update checks every cached asset for a newer remote version. With
// dry set it only reports; otherwise it fetches what is outdated.
func (ins *Installer) Update(ctx context.Context, dry bool) *Report {
	report := &Report{}
	base := expr.NewEvalContext(ins.Env)
	for _, a := range ins.Manifest.Assets() {
		report.add(ins.updateOne(ctx, a, base, dry))
	}
	return report
}

func (r *Report) add(it Item) {
	r.Items = append(r.Items, it)
}

func (ins *Installer) installOne(ctx context.Context, a *pack.Asset, base *hcl.EvalContext, report *Report) Item {
	it := Item{ID: a.ID, Group: a.Group}
	excluded, err := ins.excluded(a, base)
	if err != nil {
		return it.fail(err)
	}
	if excluded {
		it.Status = StatusExcluded
		return it
	}
	prov, ref, err := ins.resolve(ctx, a)
	if err != nil {
		return it.fail(err)
	}
	it.Fingerprint = ref.Fingerprint
	if a.Type == "note" {
		note, err := expr.Expand(ref.Note, expr.Bind(base, cty.EmptyObjectVal, a.CtyVal()))
		if err != nil {
			return it.fail(err)
		}
		report.Notes = append(report.Notes, note)
		it.Status = StatusNote
		return it
	}
	if a.CachingEnabled() && ins.Store != nil {
		entry, err := ins.Store.Get(a.ID)
		if err != nil {
			return it.fail(err)
		}
		if entry != nil && !prov.NeedsUpdate(ref, entry.Fingerprint) && entry.CheckFiles(ins.Files) {
			it.Status = StatusUpToDate
			it.Fingerprint = entry.Fingerprint
			return it
		}
	}
	if err := ins.fetch(ctx, a, prov, ref, base, &it); err != nil {
		return it.fail(err)
	}
	it.Status = StatusInstalled
	return it
}

func (ins *Installer) updateOne(ctx context.Context, a *pack.Asset, base *hcl.EvalContext, dry bool) Item {
	it := Item{ID: a.ID, Group: a.Group}
	excluded, err := ins.excluded(a, base)
	if err != nil {
		return it.fail(err)
	}
	if excluded {
		it.Status = StatusExcluded
		return it
	}
	if a.Type == "note" {
		it.Status = StatusNote
		return it
	}
	if !a.CachingEnabled() || ins.Store == nil {
		it.Status = StatusSkipped
		return it
	}
	entry, err := ins.Store.Get(a.ID)
	if err != nil {
		return it.fail(err)
	}
	prov, ref, err := ins.resolve(ctx, a)
	if err != nil {
		return it.fail(err)
	}
	it.Fingerprint = ref.Fingerprint
	current := entry != nil && !prov.NeedsUpdate(ref, entry.Fingerprint) && entry.CheckFiles(ins.Files)
	if current {
		it.Status = StatusUpToDate
		if !dry {
			entry.LastChecked = time.Now().Unix()
			if err := ins.Store.Put(entry); err != nil {
				return it.fail(err)
			}
		}
		return it
	}
	if dry {
		it.Status = StatusUpdateAvailable
		return it
	}
	if err := ins.fetch(ctx, a, prov, ref, base, &it); err != nil {
		return it.fail(err)
	}
	it.Status = StatusInstalled
	return it
}

// excluded evaluates the asset-level if clause against the
// environment; the download result is not in scope yet.
func (ins *Installer) excluded(a *pack.Asset, base *hcl.EvalContext) (bool, error) {
	if a.If == "" {
		return false, nil
	}
	ok, err := expr.EvalBool(a.If, expr.Bind(base, cty.EmptyObjectVal, a.CtyVal()))
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (ins *Installer) resolve(ctx context.Context, a *pack.Asset) (provider.Provider, provider.Ref, error) {
	prov, ok := ins.Providers.Get(a.Type)
	if !ok {
		return nil, provider.Ref{}, fmt.Errorf("%w: no provider for type %q", servpack.ErrManifest, a.Type)
	}
	ref, err := prov.Resolve(ctx, a, ins.Env)
	if err != nil {
		return nil, provider.Ref{}, err
	}
	return prov, ref, nil
}

func (ins *Installer) fetch(ctx context.Context, a *pack.Asset, prov provider.Provider, ref provider.Ref, base *hcl.EvalContext, it *Item) error {
	if ins.Env.Debug {
		log.Printf("fetching %s %s (%s)", a.Group.Unit(), a.ID, ref.Fingerprint)
	}
	t := provider.Target{Fs: ins.Files, Folder: a.FolderPath()}
	res, err := prov.Fetch(ctx, ref, a, ins.Env, t)
	if err != nil {
		return err
	}
	if err := provider.VerifySums(a.Sums, res.Sums); err != nil {
		return err
	}
	if err := ins.pipeline().Run(a, res, base); err != nil {
		return err
	}
	fingerprint := res.Fingerprint
	if fingerprint == "" {
		fingerprint = ref.Fingerprint
	}
	it.Fingerprint = fingerprint
	if a.CachingEnabled() && ins.Store != nil {
		entry := &store.Entry{
			AssetID:     a.ID,
			Fingerprint: fingerprint,
			Files:       res.Files,
			Sums:        res.Sums,
			LastChecked: time.Now().Unix(),
		}
		if err := ins.Store.Put(entry); err != nil {
			return err
		}
	}
	return nil
}

func (it Item) fail(err error) Item {
	it.Status = StatusFailed
	it.Err = err
	return it
}
