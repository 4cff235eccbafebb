package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/term"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/install"
	"github.com/servpack/servpack/pack"
)

// defaultManifests are tried in order when no -manifest flag is given.
var defaultManifests = []string{"manifest.pack", "manifest.hcl", "manifest.json"}

func findManifest(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, p := range defaultManifests {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no manifest found, tried %v", defaultManifests)
}

func newDiagWr(p *hclparse.Parser) (diagWr hcl.DiagnosticWriter, colored bool) {
	files := p.Files()
	stderr := os.Stderr
	fd := int(stderr.Fd())
	istty, colored := fdinfo(fd)
	if !istty {
		return hcl.NewDiagnosticTextWriter(stderr, files, 80, colored), colored
	}
	var width uint = 80
	if w, _, err := term.GetSize(fd); err != nil {
		log.Printf("get term size: %+v", err)
	} else if w > 0 {
		width = uint(w)
	}
	return hcl.NewDiagnosticTextWriter(stderr, files, width, colored), colored
}

func fdinfo(fd int) (istty, colored bool) {
	istty = term.IsTerminal(fd)
	if istty {
		colored = true
	}
	// See https://no-color.org
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		colored = false
	}
	return
}

// loadManifest parses and validates the manifest at path, rendering
// parse diagnostics with source context.
func loadManifest(path string) (*pack.Manifest, bool) {
	parser := hclparse.NewParser()
	diagWr, _ := newDiagWr(parser)

	src, err := os.ReadFile(path)
	if err != nil {
		log.Printf("read manifest %q: %+v", path, err)
		return nil, false
	}
	doc, diags := pack.Parse(parser, src, path)
	if err := diagWr.WriteDiagnostics(diags); err != nil {
		log.Printf("write diags: %+v", err)
		return nil, false
	}
	if diags.HasErrors() {
		return nil, false
	}
	m, err := pack.Build(doc)
	if err != nil {
		log.Printf("manifest %q: %+v", path, err)
		return nil, false
	}
	return m, true
}

// Config is the optional per-user configuration, a TOML file holding
// everything that must not live in the shared manifest.
type Config struct {
	Profile string            `toml:"profile"`
	Debug   bool              `toml:"debug"`
	Auth    map[string]string `toml:"auth"`
}

const defaultConfig = "servpack.toml"

func loadConfig(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = defaultConfig
	}
	var c Config
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &c, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := toml.Unmarshal(src, &c); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return &c, nil
}

func newEnvironment(c *Config, profile string, debug bool) *servpack.Environment {
	env := &servpack.Environment{
		Profile:   c.Profile,
		Auth:      servpack.Auth(c.Auth),
		Debug:     c.Debug || debug,
		UserAgent: programName,
	}
	if profile != "" {
		env.Profile = profile
	}
	if env.Profile == "" {
		env.Profile = servpack.DefaultProfile
	}
	return env
}

func storePath(dir string) string {
	return filepath.Join(dir, stateDir, "cache")
}

var statusColors = map[install.Status]*color.Color{
	install.StatusInstalled:       color.New(color.FgGreen),
	install.StatusUpToDate:        color.New(color.FgGreen),
	install.StatusUpdateAvailable: color.New(color.FgYellow),
	install.StatusSkipped:         color.New(color.FgYellow),
	install.StatusExcluded:        color.New(color.FgYellow),
	install.StatusNote:            color.New(color.FgCyan),
	install.StatusFailed:          color.New(color.FgRed),
}

// printReport writes the per-asset summary and the collected notes.
func printReport(r *install.Report) {
	for _, it := range r.Items {
		c := statusColors[it.Status]
		if c == nil {
			c = color.New()
		}
		line := fmt.Sprintf("%-9s %-24s %s", it.Group.Unit(), it.ID, it.Status)
		if it.Fingerprint != "" && it.Status != install.StatusFailed {
			line += " (" + it.Fingerprint + ")"
		}
		c.Fprintln(color.Output, line)
		if it.Err != nil {
			log.Printf("  %s: %+v", servpack.Kind(it.Err), it.Err)
		}
	}
	for _, note := range r.Notes {
		fmt.Fprintln(color.Output)
		color.New(color.FgCyan, color.Bold).Fprintln(color.Output, note)
	}
}
