package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/google/subcommands"

	"github.com/servpack/servpack/install"
	"github.com/servpack/servpack/provider"
	"github.com/servpack/servpack/store"
)

// commonFlags are shared by the install and update commands.
type commonFlags struct {
	Manifest string
	Config   string
	Dir      string
	Profile  string
	Debug    bool
	NoCache  bool
}

func (cmd *commonFlags) setFlags(fs *flag.FlagSet) {
	fs.StringVar(&cmd.Manifest, "manifest", "", "manifest path (default: first of manifest.pack, manifest.hcl, manifest.json)")
	fs.StringVar(&cmd.Config, "config", "", "config path (default servpack.toml if present)")
	fs.StringVar(&cmd.Dir, "dir", ".", "server directory")
	fs.StringVar(&cmd.Profile, "profile", "", "profile name for manifest expressions")
	fs.BoolVar(&cmd.Debug, "debug", false, "verbose logging")
	fs.BoolVar(&cmd.NoCache, "nocache", false, "ignore the install cache")
}

// setup builds the installer from flags. The returned store is nil
// with -nocache; the caller closes it otherwise.
func (cmd *commonFlags) setup() (*install.Installer, *store.Store, bool) {
	mpath, err := findManifest(cmd.Manifest)
	if err != nil {
		log.Printf("%+v", err)
		return nil, nil, false
	}
	m, ok := loadManifest(mpath)
	if !ok {
		return nil, nil, false
	}
	conf, err := loadConfig(cmd.Config)
	if err != nil {
		log.Printf("%+v", err)
		return nil, nil, false
	}
	env := newEnvironment(conf, cmd.Profile, cmd.Debug)
	env.MCVersion = m.MCVersion

	var st *store.Store
	if !cmd.NoCache {
		st, err = store.Open(storePath(cmd.Dir))
		if err != nil {
			log.Printf("%+v", err)
			return nil, nil, false
		}
	}
	client := &provider.Client{
		HTTP:      &http.Client{Timeout: 5 * time.Minute},
		UserAgent: env.UserAgent,
	}
	ins := &install.Installer{
		Manifest:  m,
		Env:       env,
		Files:     osfs.New(cmd.Dir),
		Store:     st,
		Providers: provider.NewRegistry(client),
	}
	return ins, st, true
}

type InstallCommand struct {
	commonFlags
}

func (*InstallCommand) Name() string     { return "install" }
func (*InstallCommand) Synopsis() string { return "install manifest assets" }
func (*InstallCommand) Usage() string {
	return `Usage: servpack install [flags]

	Installs the server core and every asset declared in the manifest.
	Assets already installed according to the cache are left alone.

Flags:
`
}

func (cmd *InstallCommand) SetFlags(fs *flag.FlagSet) {
	cmd.setFlags(fs)
}

func (cmd *InstallCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ins, st, ok := cmd.setup()
	if !ok {
		return subcommands.ExitFailure
	}
	if st != nil {
		defer st.Close()
	}
	report := ins.Install(ctx)
	printReport(report)
	if report.Failed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
