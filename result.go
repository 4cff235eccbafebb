package servpack

import (
	"path"

	"github.com/zclconf/go-cty/cty"
)

// Result is the normalized outcome of one provider fetch. Paths are
// slash-separated and relative to the server folder. A Result lives for
// the duration of one asset's processing and is never persisted.
type Result struct {
	// Files is every downloaded path, in provider order.
	Files []string
	// Primary is the subset of Files considered the actual deliverable,
	// e.g. excluding checksum side files.
	Primary []string
	// Extra holds provider payload values exposed to expressions,
	// e.g. tag_name for a github release.
	Extra map[string]cty.Value
	// Fingerprint identifies the fetched remote version. Opaque.
	Fingerprint string
	// Sums maps each downloaded path to its "algo:hex" digests.
	Sums map[string][]string
}

// FirstFile returns the first primary file.
func (r *Result) FirstFile() (string, error) {
	if len(r.Primary) == 0 {
		return "", ErrNoFiles
	}
	return r.Primary[0], nil
}

// PrimaryFile returns the single primary file. Actions that transform
// "the" file refuse to guess when the selector matched more than one.
func (r *Result) PrimaryFile() (string, error) {
	switch len(r.Primary) {
	case 0:
		return "", ErrNoFiles
	case 1:
		return r.Primary[0], nil
	}
	return "", ErrAmbiguousPrimaryFile
}

// Rename records that the file at from now lives at to.
func (r *Result) Rename(from, to string) {
	for i, f := range r.Files {
		if f == from {
			r.Files[i] = to
		}
	}
	for i, f := range r.Primary {
		if f == from {
			r.Primary[i] = to
		}
	}
	if sums, ok := r.Sums[from]; ok {
		delete(r.Sums, from)
		r.Sums[to] = sums
	}
}

// RemoveFile records that the file at name no longer exists, e.g.
// because an archive was deleted after extraction.
func (r *Result) RemoveFile(name string) {
	r.Files = withoutString(r.Files, name)
	r.Primary = withoutString(r.Primary, name)
	delete(r.Sums, name)
}

func withoutString(ss []string, drop string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

// AddFile appends a downloaded file, optionally marking it primary.
func (r *Result) AddFile(name string, primary bool, sums []string) {
	r.Files = append(r.Files, name)
	if primary {
		r.Primary = append(r.Primary, name)
	}
	if sums != nil {
		if r.Sums == nil {
			r.Sums = map[string][]string{}
		}
		r.Sums[name] = sums
	}
}

// CtyVal exposes the result to the expression engine as an object with
// files, primary_files and first_file plus the provider payload.
func (r *Result) CtyVal() cty.Value {
	attrs := map[string]cty.Value{
		"files":         stringList(r.Files),
		"primary_files": stringList(r.Primary),
	}
	if len(r.Primary) > 0 {
		attrs["first_file"] = cty.StringVal(path.Base(r.Primary[0]))
	} else {
		attrs["first_file"] = cty.NullVal(cty.String)
	}
	for k, v := range r.Extra {
		attrs[k] = v
	}
	return cty.ObjectVal(attrs)
}

func stringList(ss []string) cty.Value {
	if len(ss) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(ss))
	for i, s := range ss {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}
