// Package pack models servpack manifests: the declarative list of a
// server's engine, mods, plugins, datapacks and custom assets.
package pack

// Document is the raw manifest tree as decoded by gohcl. Every
// provider-specific field is optional at the syntax level; Build
// validates the combination against the declared type.
type Document struct {
	MCVersion string       `hcl:"mc_version"`
	Core      *CoreBlock   `hcl:"core,block"`
	Mods      []AssetBlock `hcl:"mod,block"`
	Plugins   []AssetBlock `hcl:"plugin,block"`
	Datapacks []AssetBlock `hcl:"datapack,block"`
	Customs   []AssetBlock `hcl:"custom,block"`
}

// CoreBlock declares the server engine jar.
type CoreBlock struct {
	Type string `hcl:"type"`
	// Build is a build number, "latest", or (paper) "latest_stable".
	Build    string   `hcl:"build,optional"`
	Channels []string `hcl:"channels,optional"`
	// AllowExperimental permits experimental purpur builds when Build
	// is "latest".
	AllowExperimental bool   `hcl:"allow_experimental,optional"`
	FileName          string `hcl:"file_name,optional"`
	Caching           *bool  `hcl:"caching,optional"`
}

// AssetBlock declares one installable asset. All provider fields live
// flat in a single block type; Build checks the combination.
type AssetBlock struct {
	Type    string `hcl:"type"`
	AssetID string `hcl:"asset_id,optional"`
	Caching *bool  `hcl:"caching,optional"`
	If      string `hcl:"if,optional"`
	Folder  string `hcl:"folder,optional"`

	// Version is a provider-specific version selector; most providers
	// accept "latest".
	Version string `hcl:"version,optional"`

	// modrinth
	ProjectID          string   `hcl:"project_id,optional"`
	Channel            string   `hcl:"channel,optional"`
	VersionIsID        bool     `hcl:"version_is_id,optional"`
	VersionNamePattern string   `hcl:"version_name_pattern,optional"`
	IgnoreGameVersion  bool     `hcl:"ignore_game_version,optional"`
	Loaders            []string `hcl:"loaders,optional"`

	// github, github-actions
	Repository  string `hcl:"repository,optional"`
	Branch      string `hcl:"branch,optional"`
	Workflow    string `hcl:"workflow,optional"`
	NamePattern string `hcl:"name_pattern,optional"`

	// jenkins, url, html
	URL      string `hcl:"url,optional"`
	Job      string `hcl:"job,optional"`
	FileName string `hcl:"file_name,optional"`
	// Selector is the CSS selector of the html provider.
	Selector string `hcl:"selector,optional"`

	// note
	Note string `hcl:"note,optional"`

	// File selection for multi-file remote listings: a named selector
	// ("all", "simple-jar") or a regex pattern.
	FileSelector string `hcl:"file_selector,optional"`
	FilePattern  string `hcl:"file_pattern,optional"`
	PatternMode  string `hcl:"pattern_mode,optional"`

	// Sums are expected "algo:hex" digests of the downloaded files.
	Sums []string `hcl:"sums,optional"`

	Actions []ActionBlock `hcl:"action,block"`
}

// ActionBlock declares one post-download step.
type ActionBlock struct {
	Type   string `hcl:"type,label"`
	If     string `hcl:"if,optional"`
	Expr   string `hcl:"expr,optional"`
	To     string `hcl:"to,optional"`
	Folder string `hcl:"folder,optional"`
}
