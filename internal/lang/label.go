package lang

import (
	"fmt"
	"strings"
)

// Label renders the signature shown in completion lists and hovers:
// the bare name for variables, name(params) for callables, with defaults
// spelled out.
func Label(d *Declaration) string {
	switch d.Kind {
	case DeclVariable, DeclKeyword:
		return d.Name
	default:
		parts := make([]string, 0, len(d.Params))
		for _, p := range d.Params {
			if p.Default != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", p.Name, p.Default))
			} else {
				parts = append(parts, p.Name)
			}
		}
		return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
	}
}

// Snippet renders the completion insert text with tab stops. Parameters
// carrying defaults are omitted unless includeDefaults is set, in which
// case they are pre-filled with their default value.
func Snippet(d *Declaration, includeDefaults bool) string {
	switch d.Kind {
	case DeclVariable:
		return d.Name
	case DeclKeyword:
		return d.Snippet
	}

	var parts []string
	stop := 0
	for _, p := range d.Params {
		if p.Default != "" {
			if includeDefaults {
				parts = append(parts, fmt.Sprintf("%s = %s", p.Name, p.Default))
			}
			continue
		}
		stop++
		parts = append(parts, fmt.Sprintf("${%d:%s}", stop, p.Name))
	}
	params := strings.Join(parts, ", ")

	switch {
	case d.Kind == DeclFunction:
		return fmt.Sprintf("%s(%s)$0", d.Name, params)
	case d.Group:
		// Group modules wrap a child statement, so no semicolon.
		return fmt.Sprintf("%s(%s) $0", d.Name, params)
	default:
		return fmt.Sprintf("%s(%s);$0", d.Name, params)
	}
}

// Hover renders the markdown hover: a fenced scad signature, then the doc
// separated by a rule. User docs are wrapped in <pre> so editor clients
// keep their layout; builtin docs are already markdown.
func Hover(d *Declaration) string {
	label := Label(d)
	switch d.Kind {
	case DeclFunction:
		label = fmt.Sprintf("```scad\nfunction %s\n```", label)
	case DeclModule:
		label = fmt.Sprintf("```scad\nmodule %s\n```", label)
	default:
		label = fmt.Sprintf("```scad\n%s\n```", label)
	}
	if d.Doc == "" {
		return label
	}
	if d.Builtin {
		return fmt.Sprintf("%s\n---\n\n%s\n", label, d.Doc)
	}
	return fmt.Sprintf("%s\n---\n\n<pre>\n%s\n</pre>\n", label, d.Doc)
}

// Keywords are the language-level completion entries with their expansion
// snippets. They live at the lowest resolution priority next to builtins.
var Keywords = []Declaration{
	{Name: "else", Kind: DeclKeyword, Snippet: "else {  $0\n}", Builtin: true},
	{Name: "false", Kind: DeclKeyword, Snippet: "false", Builtin: true},
	{Name: "for", Kind: DeclKeyword, Snippet: "for (${1:LOOP}) {\n  $0\n}", Builtin: true},
	{Name: "function", Kind: DeclKeyword, Snippet: "function ${1:NAME}(${2:ARGS}) = $0;", Builtin: true},
	{Name: "if", Kind: DeclKeyword, Snippet: "if (${1:COND}) {\n  $0\n}", Builtin: true},
	{Name: "include", Kind: DeclKeyword, Snippet: "include <${1:PATH}>$0", Builtin: true},
	{Name: "intersection_for", Kind: DeclKeyword, Snippet: "intersection_for(${1:LOOP}) {\n  $0\n}", Builtin: true},
	{Name: "let", Kind: DeclKeyword, Snippet: "let (${1:VARS}) $0", Builtin: true},
	{Name: "module", Kind: DeclKeyword, Snippet: "module ${1:NAME}(${2:ARGS}) {\n  $0\n}", Builtin: true},
	{Name: "true", Kind: DeclKeyword, Snippet: "true", Builtin: true},
	{Name: "use", Kind: DeclKeyword, Snippet: "use <${1:PATH}>$0", Builtin: true},
	{Name: "each", Kind: DeclKeyword, Snippet: "each ${1:LIST}$0", Builtin: true},
}
