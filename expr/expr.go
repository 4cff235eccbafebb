package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	servpack "github.com/servpack/servpack"
)

// The function table is a closed allowlist from the cty stdlib; every
// function here is pure.
var functions = map[string]function.Function{
	"len":     stdlib.LengthFunc,
	"strlen":  stdlib.StrlenFunc,
	"upper":   stdlib.UpperFunc,
	"lower":   stdlib.LowerFunc,
	"trim":    stdlib.TrimSpaceFunc,
	"replace": stdlib.ReplaceFunc,
	"format":  stdlib.FormatFunc,
}

// NewEvalContext builds the evaluation context for one run. env and
// profile are visible to every expression; per-asset bindings are added
// with Bind.
func NewEvalContext(env *servpack.Environment) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":     env.CtyVal(),
			"profile": cty.StringVal(env.Profile),
		},
		Functions: functions,
	}
}

// Bind derives a child context exposing the fetch result as data/d and
// the asset declaration as asset/a.
func Bind(parent *hcl.EvalContext, data, asset cty.Value) *hcl.EvalContext {
	ctx := parent.NewChild()
	ctx.Variables = map[string]cty.Value{
		"data":  data,
		"d":     data,
		"asset": asset,
		"a":     asset,
	}
	return ctx
}

// Eval evaluates a single expression. Any syntax or evaluation problem,
// including a reference to an undefined binding, is a template error.
func Eval(src string, ctx *hcl.EvalContext) (cty.Value, error) {
	e, diags := hclsyntax.ParseExpression([]byte(src), "<expr>", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return cty.NilVal, templateErr(src, diags)
	}
	v, diags := e.Value(ctx)
	if diags.HasErrors() {
		return cty.NilVal, templateErr(src, diags)
	}
	return v, nil
}

// EvalBool evaluates an if-expression. Only a known boolean result is
// accepted; anything else is a template error.
func EvalBool(src string, ctx *hcl.EvalContext) (bool, error) {
	v, err := Eval(src, ctx)
	if err != nil {
		return false, err
	}
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Bool {
		return false, fmt.Errorf("%w: expression %q returned non-boolean", servpack.ErrTemplate, src)
	}
	return v.True(), nil
}

// Expand renders a template string: each ${{ ... }} span is evaluated
// and its stringified result substituted into the surrounding literal
// text.
func Expand(tpl string, ctx *hcl.EvalContext) (string, error) {
	var b strings.Builder
	for _, part := range Scan(tpl) {
		if !part.Expr {
			b.WriteString(part.Text)
			continue
		}
		v, err := Eval(part.Text, ctx)
		if err != nil {
			return "", err
		}
		s, err := Stringify(v)
		if err != nil {
			return "", fmt.Errorf("%w: expression %q: %v", servpack.ErrTemplate, part.Text, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Stringify converts an expression result to its template text form.
func Stringify(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("result is null")
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", err
	}
	return s.AsString(), nil
}

func templateErr(src string, diags hcl.Diagnostics) error {
	return fmt.Errorf("%w: %q: %s", servpack.ErrTemplate, src, diags.Error())
}
