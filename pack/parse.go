package pack

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	servpack "github.com/servpack/servpack"
)

// EscapeTemplates rewrites every ${{ in src to HCL's literal spelling
// $${{. HCL's own template language claims ${ inside quoted strings,
// so a bare ${{ ... }} span would otherwise be rejected as a malformed
// interpolation; after escaping, HCL decodes the span back to literal
// ${{, which is what the expression scanner consumes. A manifest that
// already writes $${{ by hand is left alone and decodes to the same
// string.
func EscapeTemplates(src []byte) []byte {
	open := []byte("${{")
	if !bytes.Contains(src, open) {
		return src
	}
	out := make([]byte, 0, len(src)+16)
	for i := 0; i < len(src); {
		if bytes.HasPrefix(src[i:], open) && (i == 0 || src[i-1] != '$') {
			out = append(out, "$${{"...)
			i += len(open)
			continue
		}
		out = append(out, src[i])
		i++
	}
	return out
}

// Parse decodes manifest source into a Document. JSON manifests are
// recognized by file extension; everything else is native HCL syntax.
// The parser is exposed so callers can render diagnostics with source
// context.
func Parse(p *hclparse.Parser, src []byte, filename string) (*Document, hcl.Diagnostics) {
	var file *hcl.File
	var diags hcl.Diagnostics
	src = EscapeTemplates(src)
	if strings.HasSuffix(filename, ".json") {
		file, diags = p.ParseJSON(src, filename)
	} else {
		file, diags = p.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	var doc Document
	decodeDiags := gohcl.DecodeBody(file.Body, nil, &doc)
	diags = append(diags, decodeDiags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return &doc, diags
}

// Load parses and validates manifest source in one step, for callers
// that do not need diagnostic rendering.
func Load(src []byte, filename string) (*Manifest, error) {
	doc, diags := Parse(hclparse.NewParser(), src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", servpack.ErrManifest, diags.Error())
	}
	return Build(doc)
}
