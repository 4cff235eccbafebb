package provider

import (
	"context"

	servpack "github.com/servpack/servpack"
	"github.com/servpack/servpack/pack"
)

// Note is kept for assets that must be installed by hand, typically
// because the upstream gates downloads behind a login. It fetches
// nothing and surfaces its message at the end of the run.
type Note struct{}

func (p *Note) Resolve(ctx context.Context, a *pack.Asset, env *servpack.Environment) (Ref, error) {
	return Ref{Note: a.Note}, nil
}

func (p *Note) Fetch(ctx context.Context, ref Ref, a *pack.Asset, env *servpack.Environment, t Target) (*servpack.Result, error) {
	return &servpack.Result{}, nil
}

func (p *Note) NeedsUpdate(ref Ref, cached string) bool {
	return false
}
