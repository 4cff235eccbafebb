package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
)

type CleanCommand struct {
	Dir string
}

func (*CleanCommand) Name() string     { return "clean" }
func (*CleanCommand) Synopsis() string { return "remove the install cache" }
func (*CleanCommand) Usage() string {
	return `Usage: servpack clean [-dir path]

	Removes the install cache. Installed files are left alone; the
	next install run fetches everything anew.

Flags:
`
}

func (cmd *CleanCommand) SetFlags(fs *flag.FlagSet) {
	fs.StringVar(&cmd.Dir, "dir", ".", "server directory")
}

func (cmd *CleanCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	path := filepath.Join(cmd.Dir, stateDir)
	if err := os.RemoveAll(path); err != nil {
		log.Printf("clean %q: %+v", path, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
