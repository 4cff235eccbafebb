// Package expr hosts the manifest expression engine: a template scanner
// for ${{ ... }} spans and a sandboxed evaluator over a closed binding
// set. Expressions are HCL syntax evaluated against cty values; there
// is no statement form, no assignment and no host access.
package expr

import "strings"

const (
	openDelim  = "${{"
	closeDelim = "}}"
	escape     = '\\'
)

// Part is one segment of a scanned template: literal text or the source
// of a single expression.
type Part struct {
	Text string
	Expr bool
}

// Scan splits a template string into literal and expression parts.
// A backslash before the opening delimiter escapes it: `\${{x}}`
// renders the span literally, `\\${{x}}` renders one backslash followed
// by the evaluated expression, and so on with the usual doubling rule.
// An unterminated opening delimiter is treated as literal text.
func Scan(s string) []Part {
	var parts []Part
	last := 0
	for {
		pos := strings.Index(s[last:], openDelim)
		if pos < 0 {
			break
		}
		pos += last
		end := strings.Index(s[pos+len(openDelim):], closeDelim)
		if end < 0 {
			break
		}
		end += pos + len(openDelim)

		bs := 0
		for k := pos - 1; k >= 0 && s[k] == escape; k-- {
			bs++
		}
		prefix := s[last : pos-bs]
		exprText := s[pos+len(openDelim) : end]
		token := s[pos : end+len(closeDelim)]

		switch {
		case bs == 0:
			parts = appendLiteral(parts, prefix)
			parts = append(parts, Part{Text: exprText, Expr: true})
		case bs == 1:
			parts = appendLiteral(parts, prefix+token)
		case bs%2 == 0:
			parts = appendLiteral(parts, prefix+strings.Repeat(string(escape), bs-1))
			parts = append(parts, Part{Text: exprText, Expr: true})
		default:
			parts = appendLiteral(parts, prefix+strings.Repeat(string(escape), bs-1)+token)
		}
		last = end + len(closeDelim)
	}
	if last < len(s) {
		parts = appendLiteral(parts, s[last:])
	}
	return parts
}

func appendLiteral(parts []Part, text string) []Part {
	if text == "" {
		return parts
	}
	if n := len(parts); n > 0 && !parts[n-1].Expr {
		parts[n-1].Text += text
		return parts
	}
	return append(parts, Part{Text: text})
}
