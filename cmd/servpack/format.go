package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
	"github.com/google/subcommands"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/pkg/diff"

	"github.com/servpack/servpack/pack"
)

type FormatCommand struct {
	DisableCheck bool
	Overwrite    bool
	ContextSize  int
}

func (*FormatCommand) Name() string     { return "fmt" }
func (*FormatCommand) Synopsis() string { return "format manifests" }
func (*FormatCommand) Usage() string {
	return `Usage: servpack fmt [-c int] [-w] [-nocheck] [manifest paths]

	Formats manifests using standard syntax. It can either write files
	in-place or generate a unified diff with the given context size.
	JSON manifests are left alone.

Flags:
`
}

func (cmd *FormatCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.DisableCheck, "nocheck", false, "disable diagnostics")
	fs.BoolVar(&cmd.Overwrite, "w", false, "write result to (source) file instead of stdout")
	fs.IntVar(&cmd.ContextSize, "c", 3, "output n lines of diff context")
}

func (cmd *FormatCommand) Execute(ctx context.Context, fs *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	paths := fs.Args()
	if len(paths) <= 0 {
		p, err := findManifest("")
		if err != nil {
			log.Printf("%+v", err)
			return subcommands.ExitFailure
		}
		paths = []string{p}
	} else {
		sort.Strings(paths)
	}

	seen := make(map[string]bool, len(paths))
	for _, fpath := range paths {
		if seen[fpath] {
			continue
		}
		seen[fpath] = true
		if strings.HasSuffix(fpath, ".json") {
			continue
		}
		if !cmd.formatOne(ctx, fpath) {
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func (cmd *FormatCommand) formatOne(ctx context.Context, fpath string) bool {
	src, err := os.ReadFile(fpath)
	if err != nil {
		log.Printf("read manifest %q: %+v", fpath, err)
		return false
	}

	var colored bool
	if !cmd.DisableCheck {
		parser := hclparse.NewParser()
		wr, c := newDiagWr(parser)
		colored = c
		doc, diags := pack.Parse(parser, src, fpath)
		if err := wr.WriteDiagnostics(diags); err != nil {
			log.Printf("write diags: %+v", err)
			return false
		}
		if diags.HasErrors() {
			return false
		}
		if _, err := pack.Build(doc); err != nil {
			log.Printf("manifest %q: %+v", fpath, err)
			return false
		}
	}

	// Format the escaped form so ${{ spans read as literal string
	// content, then restore the unescaped delimiter. This also
	// normalizes a hand-written $${{ to ${{.
	outSrc := hclwrite.Format(pack.EscapeTemplates(src))
	outSrc = bytes.ReplaceAll(outSrc, []byte("$${{"), []byte("${{"))
	if bytes.Equal(src, outSrc) {
		return true
	}
	if !cmd.Overwrite {
		fpath := filepath.ToSlash(fpath)
		names := diff.Names(fmt.Sprintf("a/%s", fpath), fmt.Sprintf("b/%s", fpath))
		opts := []diff.WriteOpt{names}
		if colored {
			opts = append(opts, diff.TerminalColor())
		}
		a, b := splitLines(src), splitLines(outSrc)
		pair := diff.Bytes(a, b)
		edit := diff.Myers(ctx, pair)
		if cmd.ContextSize >= 0 {
			edit = edit.WithContextSize(cmd.ContextSize)
		}
		if _, err := edit.WriteUnified(os.Stdout, pair, opts...); err != nil {
			log.Printf("write diff: %+v", err)
			return false
		}
		return true
	}
	if err := renameio.WriteFile(fpath, outSrc, 0644); err != nil {
		log.Printf("write file %q: %+v", fpath, err)
		return false
	}
	return true
}

func splitLines(b []byte) [][]byte {
	return bytes.Split(b, []byte("\n"))
}
