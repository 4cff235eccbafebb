package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"
)

type UpdateCommand struct {
	commonFlags
	Dry bool
}

func (*UpdateCommand) Name() string     { return "update" }
func (*UpdateCommand) Synopsis() string { return "update installed assets" }
func (*UpdateCommand) Usage() string {
	return `Usage: servpack update [-dry] [flags]

	Checks every cached asset against its provider and fetches the
	ones with a newer remote version. With -dry it only reports what
	would change.

Flags:
`
}

func (cmd *UpdateCommand) SetFlags(fs *flag.FlagSet) {
	cmd.setFlags(fs)
	fs.BoolVar(&cmd.Dry, "dry", false, "report updates without installing them")
}

func (cmd *UpdateCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	ins, st, ok := cmd.setup()
	if !ok {
		return subcommands.ExitFailure
	}
	if st != nil {
		defer st.Close()
	}
	report := ins.Update(ctx, cmd.Dry)
	printReport(report)
	if report.Failed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
