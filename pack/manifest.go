package pack

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"

	"github.com/andybalholm/cascadia"
	"github.com/zclconf/go-cty/cty"

	servpack "github.com/servpack/servpack"
)

// Group is the manifest list an asset belongs to. It decides the
// destination folder under the server root.
type Group int

const (
	GroupCore Group = iota
	GroupMods
	GroupPlugins
	GroupDatapacks
	GroupCustoms
)

func (g Group) String() string {
	switch g {
	case GroupCore:
		return "core"
	case GroupMods:
		return "mods"
	case GroupPlugins:
		return "plugins"
	case GroupDatapacks:
		return "datapacks"
	case GroupCustoms:
		return "customs"
	}
	return "unknown"
}

// Unit is the singular display name, e.g. "plugin".
func (g Group) Unit() string {
	switch g {
	case GroupCore:
		return "core"
	case GroupMods:
		return "mod"
	case GroupPlugins:
		return "plugin"
	case GroupDatapacks:
		return "datapack"
	case GroupCustoms:
		return "custom asset"
	}
	return "asset"
}

// Asset is a validated asset declaration with its derived identity.
type Asset struct {
	AssetBlock

	// ID is the declared or derived asset id, unique per manifest.
	ID    string
	Group Group

	// Core-only fields.
	Channels          []string
	AllowExperimental bool

	sel Selector
}

// FolderPath is the destination folder relative to the server root.
// Empty means the server root itself.
func (a *Asset) FolderPath() string {
	switch a.Group {
	case GroupCore:
		return ""
	case GroupMods:
		return "mods"
	case GroupPlugins:
		return "plugins"
	case GroupDatapacks:
		return "world/datapacks"
	}
	return a.Folder
}

// CachingEnabled reports whether install results are recorded in the
// cache store. Defaults to true; note assets never cache.
func (a *Asset) CachingEnabled() bool {
	if a.Type == "note" {
		return false
	}
	if a.Caching == nil {
		return true
	}
	return *a.Caching
}

// Select filters a remote file listing through the asset's selector.
func (a *Asset) Select(names []string) []string {
	return a.sel.Filter(names)
}

// CtyVal exposes the declaration to the expression engine, read-only.
func (a *Asset) CtyVal() cty.Value {
	attrs := map[string]cty.Value{
		"type":     cty.StringVal(a.Type),
		"asset_id": cty.StringVal(a.ID),
		"group":    cty.StringVal(a.Group.String()),
		"caching":  cty.BoolVal(a.CachingEnabled()),
		"folder":   cty.StringVal(a.FolderPath()),
	}
	opt := map[string]string{
		"version":    a.Version,
		"project_id": a.ProjectID,
		"repository": a.Repository,
		"branch":     a.Branch,
		"workflow":   a.Workflow,
		"url":        a.URL,
		"job":        a.Job,
		"file_name":  a.FileName,
		"channel":    a.Channel,
		"note":       a.Note,
	}
	for k, v := range opt {
		if v != "" {
			attrs[k] = cty.StringVal(v)
		}
	}
	return cty.ObjectVal(attrs)
}

// Manifest is the immutable, validated form of a Document.
type Manifest struct {
	MCVersion string
	Core      *Asset
	Mods      []*Asset
	Plugins   []*Asset
	Datapacks []*Asset
	Customs   []*Asset
}

// Assets returns all asset declarations in stable install order:
// core first, then mods, plugins, datapacks, customs.
func (m *Manifest) Assets() []*Asset {
	ls := make([]*Asset, 0, 1+len(m.Mods)+len(m.Plugins)+len(m.Datapacks)+len(m.Customs))
	if m.Core != nil {
		ls = append(ls, m.Core)
	}
	ls = append(ls, m.Mods...)
	ls = append(ls, m.Plugins...)
	ls = append(ls, m.Datapacks...)
	ls = append(ls, m.Customs...)
	return ls
}

// Types that may appear in an asset block. Closed set: an unknown type
// is a manifest validation error, never a runtime panic.
var assetTypes = map[string]bool{
	"modrinth":       true,
	"github":         true,
	"github-actions": true,
	"jenkins":        true,
	"url":            true,
	"html":           true,
	"note":           true,
}

var coreTypes = map[string]bool{
	"paper":  true,
	"purpur": true,
}

var actionTypes = map[string]bool{
	"dummy":  true,
	"rename": true,
	"unzip":  true,
}

// CoreAssetID is the cache key of the server engine entry.
const CoreAssetID = "core"

// Build validates a decoded document and derives asset identities.
// Any error it returns wraps servpack.ErrManifest and is fatal for
// the run; no network call happens before Build succeeds.
func Build(doc *Document) (*Manifest, error) {
	m := &Manifest{MCVersion: doc.MCVersion}
	if doc.MCVersion == "" {
		return nil, badManifest("mc_version is required")
	}
	seen := map[string]string{}
	if doc.Core != nil {
		core, err := buildCore(doc.Core)
		if err != nil {
			return nil, err
		}
		m.Core = core
		seen[core.ID] = "core"
	}
	groups := []struct {
		group  Group
		blocks []AssetBlock
		out    *[]*Asset
	}{
		{GroupMods, doc.Mods, &m.Mods},
		{GroupPlugins, doc.Plugins, &m.Plugins},
		{GroupDatapacks, doc.Datapacks, &m.Datapacks},
		{GroupCustoms, doc.Customs, &m.Customs},
	}
	for _, g := range groups {
		for i := range g.blocks {
			a, err := buildAsset(&g.blocks[i], g.group)
			if err != nil {
				return nil, err
			}
			if prev, ok := seen[a.ID]; ok {
				return nil, badManifest("duplicate asset_id %q (%s and %s)", a.ID, prev, g.group)
			}
			seen[a.ID] = g.group.String()
			*g.out = append(*g.out, a)
		}
	}
	return m, nil
}

func buildCore(b *CoreBlock) (*Asset, error) {
	if !coreTypes[b.Type] {
		return nil, badManifest("unknown core type %q", b.Type)
	}
	if b.Build == "" {
		b.Build = "latest"
	}
	if _, err := strconv.Atoi(b.Build); err != nil {
		switch b.Build {
		case "latest":
		case "latest_stable":
			if b.Type != "paper" {
				return nil, badManifest("core build %q is only valid for paper", b.Build)
			}
		default:
			return nil, badManifest("core build must be a number, %q or %q", "latest", "latest_stable")
		}
	}
	a := &Asset{
		AssetBlock: AssetBlock{
			Type:     b.Type,
			Version:  b.Build,
			FileName: b.FileName,
			Caching:  b.Caching,
		},
		ID:                CoreAssetID,
		Group:             GroupCore,
		Channels:          b.Channels,
		AllowExperimental: b.AllowExperimental,
		sel:               allSelector{},
	}
	return a, nil
}

func buildAsset(b *AssetBlock, group Group) (*Asset, error) {
	if !assetTypes[b.Type] {
		return nil, badManifest("unknown asset type %q", b.Type)
	}
	if group == GroupCustoms && b.Folder == "" && b.Type != "note" {
		return nil, badManifest("custom asset of type %q requires folder", b.Type)
	}
	if err := validateFields(b); err != nil {
		return nil, err
	}
	id := b.AssetID
	if id == "" {
		var err error
		id, err = deriveID(b)
		if err != nil {
			return nil, err
		}
	}
	sel, err := newSelector(b, defaultSelector(b.Type))
	if err != nil {
		return nil, err
	}
	for i := range b.Actions {
		if err := validateAction(&b.Actions[i], id, i); err != nil {
			return nil, err
		}
	}
	return &Asset{AssetBlock: *b, ID: id, Group: group, sel: sel}, nil
}

func validateFields(b *AssetBlock) error {
	req := func(name, v string) error {
		if v == "" {
			return badManifest("%s asset requires %s", b.Type, name)
		}
		return nil
	}
	switch b.Type {
	case "modrinth":
		if err := req("project_id", b.ProjectID); err != nil {
			return err
		}
		if err := req("version", b.Version); err != nil {
			return err
		}
		if b.VersionNamePattern != "" {
			if _, err := regexp.Compile(b.VersionNamePattern); err != nil {
				return badManifest("bad version_name_pattern: %v", err)
			}
		}
	case "github":
		if err := req("repository", b.Repository); err != nil {
			return err
		}
		if err := req("version", b.Version); err != nil {
			return err
		}
	case "github-actions":
		if err := req("repository", b.Repository); err != nil {
			return err
		}
		if err := req("workflow", b.Workflow); err != nil {
			return err
		}
		if b.Version == "" {
			b.Version = "latest"
		}
		if b.Branch == "" {
			b.Branch = "master"
		}
		if b.NamePattern != "" {
			if _, err := regexp.Compile(b.NamePattern); err != nil {
				return badManifest("bad name_pattern: %v", err)
			}
		}
	case "jenkins":
		if err := req("url", b.URL); err != nil {
			return err
		}
		if err := req("job", b.Job); err != nil {
			return err
		}
		if b.Version == "" {
			b.Version = "latest"
		}
		if b.Version != "latest" {
			if _, err := strconv.Atoi(b.Version); err != nil {
				return badManifest("jenkins version must be a build number or %q", "latest")
			}
		}
	case "url":
		if err := req("url", b.URL); err != nil {
			return err
		}
		if b.FileName == "" {
			u, err := url.Parse(b.URL)
			if err != nil {
				return badManifest("bad url %q: %v", b.URL, err)
			}
			if name := path.Base(u.Path); name == "" || name == "." || name == "/" {
				return badManifest("cannot derive file name from %q, set file_name", b.URL)
			}
		}
	case "html":
		if err := req("url", b.URL); err != nil {
			return err
		}
		if err := req("selector", b.Selector); err != nil {
			return err
		}
		if _, err := cascadia.Compile(b.Selector); err != nil {
			return badManifest("bad css selector %q: %v", b.Selector, err)
		}
	case "note":
		if err := req("note", b.Note); err != nil {
			return err
		}
		if b.AssetID == "" {
			return badManifest("note asset requires asset_id")
		}
	}
	if b.URL != "" {
		if _, err := url.Parse(b.URL); err != nil {
			return badManifest("bad url %q: %v", b.URL, err)
		}
	}
	return nil
}

// deriveID builds a stable identity from type-specific fields. Pure and
// evaluated once at load time so cache keys survive light manifest
// edits.
func deriveID(b *AssetBlock) (string, error) {
	switch b.Type {
	case "modrinth":
		return b.ProjectID, nil
	case "github":
		return b.Repository, nil
	case "github-actions":
		return b.Repository + "/" + b.Workflow + "@" + b.Branch, nil
	case "jenkins":
		u, err := url.Parse(b.URL)
		if err != nil || u.Host == "" {
			return "", badManifest("jenkins url %q has no host", b.URL)
		}
		return b.Job + "@" + u.Host, nil
	case "url", "html":
		return b.URL, nil
	}
	return "", badManifest("cannot derive asset_id for type %q", b.Type)
}

func validateAction(ab *ActionBlock, assetID string, idx int) error {
	if !actionTypes[ab.Type] {
		return badManifest("unknown action type %q in %s actions[%d]", ab.Type, assetID, idx)
	}
	switch ab.Type {
	case "dummy":
		if ab.Expr == "" {
			return badManifest("dummy action in %s actions[%d] requires expr", assetID, idx)
		}
	case "rename":
		if ab.To == "" {
			return badManifest("rename action in %s actions[%d] requires to", assetID, idx)
		}
	case "unzip":
		if ab.Folder != "" && path.IsAbs(ab.Folder) {
			return badManifest("unzip folder in %s actions[%d] must be relative", assetID, idx)
		}
	}
	return nil
}

func badManifest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", servpack.ErrManifest, fmt.Sprintf(format, args...))
}
