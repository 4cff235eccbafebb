// Package action runs the post-download steps declared on an asset:
// renaming the installed file, extracting archives, or just evaluating
// an expression for its log output.
package action

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/hashicorp/hcl/v2"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/expr"
	"github.com/servpack/servpack/pack"
)

// Pipeline executes the action list of one asset against the server
// filesystem.
type Pipeline struct {
	Fs  billy.Filesystem
	Env *servpack.Environment
}

// Run executes the asset's actions in declaration order. Each action
// sees the download result as it stands after the previous one: a
// rename updates the file set the next action observes. The first
// failure aborts the remainder.
func (p *Pipeline) Run(a *pack.Asset, res *servpack.Result, base *hcl.EvalContext) error {
	for i := range a.Actions {
		act := &a.Actions[i]
		ctx := expr.Bind(base, res.CtyVal(), a.CtyVal())
		if act.If != "" {
			ok, err := expr.EvalBool(act.If, ctx)
			if err != nil {
				return fmt.Errorf("action %d (%s) of %s: %w", i+1, act.Type, a.ID, err)
			}
			if !ok {
				continue
			}
		}
		var err error
		switch act.Type {
		case "dummy":
			err = p.dummy(act, ctx)
		case "rename":
			err = p.rename(act, a, res, ctx)
		case "unzip":
			err = p.unzip(act, a, res, ctx)
		default:
			err = fmt.Errorf("%w: unknown action type %q", servpack.ErrManifest, act.Type)
		}
		if err != nil {
			return fmt.Errorf("action %d (%s) of %s: %w", i+1, act.Type, a.ID, err)
		}
	}
	return nil
}

func (p *Pipeline) dummy(act *pack.ActionBlock, ctx *hcl.EvalContext) error {
	v, err := expr.Eval(act.Expr, ctx)
	if err != nil {
		return err
	}
	s, err := expr.Stringify(v)
	if err != nil {
		return err
	}
	log.Printf("dummy: %s", s)
	return nil
}

func (p *Pipeline) rename(act *pack.ActionBlock, a *pack.Asset, res *servpack.Result, ctx *hcl.EvalContext) error {
	to, err := expr.Expand(act.To, ctx)
	if err != nil {
		return err
	}
	from, err := res.PrimaryFile()
	if err != nil {
		return err
	}
	dest := p.Fs.Join(path.Dir(from), to)
	if dest == from {
		return nil
	}
	if _, err := p.Fs.Stat(dest); err == nil {
		if err := p.Fs.Remove(dest); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := p.Fs.Rename(from, dest); err != nil {
		return err
	}
	res.Rename(from, dest)
	return nil
}

func (p *Pipeline) unzip(act *pack.ActionBlock, a *pack.Asset, res *servpack.Result, ctx *hcl.EvalContext) error {
	from, err := res.PrimaryFile()
	if err != nil {
		return err
	}
	if path.Ext(from) != ".zip" {
		return fmt.Errorf("%w: %s", servpack.ErrUnsupportedArchive, from)
	}
	folder := path.Dir(from)
	if act.Folder != "" {
		sub, err := expr.Expand(act.Folder, ctx)
		if err != nil {
			return err
		}
		folder = p.Fs.Join(folder, sub)
	}
	// The archive stays in place; extraction only adds files.
	return p.extract(from, folder, res)
}

func (p *Pipeline) extract(from, folder string, res *servpack.Result) error {
	f, err := p.Fs.Open(from)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := p.Fs.Stat(from)
	if err != nil {
		return err
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return fmt.Errorf("%w: %v", servpack.ErrExtractionFailed, err)
	}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(zf.Name)
		if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return fmt.Errorf("%w: entry %q escapes the archive", servpack.ErrExtractionFailed, zf.Name)
		}
		dest := p.Fs.Join(folder, name)
		if err := p.extractFile(zf, dest); err != nil {
			return err
		}
		res.AddFile(dest, false, nil)
	}
	return nil
}

func (p *Pipeline) extractFile(zf *zip.File, dest string) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", servpack.ErrExtractionFailed, err)
	}
	defer rc.Close()
	if dir := path.Dir(dest); dir != "." {
		if err := p.Fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	w, err := p.Fs.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
