package servpack

import "github.com/zclconf/go-cty/cty"

const DefaultProfile = "default"

// Auth holds authorization tokens keyed by provider name.
type Auth map[string]string

func (a Auth) Token(provider string) string {
	if a == nil {
		return ""
	}
	return a[provider]
}

// Environment is the ambient, read-only context of one run. It is built
// once at run start and shared by reference; nothing mutates it during
// asset processing.
type Environment struct {
	Profile   string
	MCVersion string
	Auth      Auth
	Debug     bool
	UserAgent string
}

// CtyVal exposes the environment to expressions. Auth tokens are
// deliberately not included: manifests are shared documents and an
// expression must not be able to read credentials into a file name.
func (e *Environment) CtyVal() cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"profile":    cty.StringVal(e.Profile),
		"mc_version": cty.StringVal(e.MCVersion),
		"debug":      cty.BoolVal(e.Debug),
	})
}
