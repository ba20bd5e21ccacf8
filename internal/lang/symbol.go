// Package lang models OpenSCAD declarations, references and scopes as
// extracted from syntax trees. It is the vocabulary shared by the workspace
// index and the query layer.
package lang

import (
	"scadls/internal/syntax"
)

// DeclKind is the closed set of declaration kinds. Anything a name can
// resolve to is one of these.
type DeclKind int

const (
	DeclVariable DeclKind = iota
	DeclModule
	DeclFunction
	DeclKeyword
)

func (k DeclKind) String() string {
	switch k {
	case DeclVariable:
		return "variable"
	case DeclModule:
		return "module"
	case DeclFunction:
		return "function"
	case DeclKeyword:
		return "keyword"
	default:
		return "unknown"
	}
}

// Callable reports whether the kind is invoked with arguments.
func (k DeclKind) Callable() bool {
	return k == DeclModule || k == DeclFunction
}

type Param struct {
	Name    string
	Default string
	Span    syntax.Range
}

// Declaration is a named entity introduced by source text or the builtin
// table.
type Declaration struct {
	Name   string
	Kind   DeclKind
	Params []Param

	// Span covers the whole declaration, NameSpan just the name token.
	Span     syntax.Range
	NameSpan syntax.Range

	Doc string

	// Group marks modules whose body starts with a group comment; their
	// snippets omit the trailing semicolon so a child statement follows.
	Group bool

	// Snippet overrides the generated completion insert text. Used by
	// keyword entries from the builtin table.
	Snippet string

	Builtin bool
	Path    string
}

// Reference is a resolvable occurrence of a name outside declaration
// position.
type Reference struct {
	Name string
	Span syntax.Range

	// Call is set when the name is invoked, narrowing resolution to
	// modules and functions.
	Call bool
}

// IncludeKind distinguishes the two inclusion directives. Textual includes
// splice the target transparently; use imports only modules and functions
// and is not re-exported.
type IncludeKind int

const (
	IncludeTextual IncludeKind = iota
	IncludeUse
)

func (k IncludeKind) String() string {
	if k == IncludeUse {
		return "use"
	}
	return "include"
}

// IncludeDirective is one include/use statement with its trimmed path.
type IncludeDirective struct {
	Path     string
	Kind     IncludeKind
	Span     syntax.Range
	PathSpan syntax.Range
}

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

type Diagnostic struct {
	Span     syntax.Range
	Message  string
	Severity Severity
}

// Scope is one lexical level. Scopes form a tree through Parent indices
// into the owning FileSymbols arena; index 0 is the file scope and its
// Parent is -1.
type Scope struct {
	Parent int
	Span   syntax.Range
	Decls  []Declaration
}

// FileSymbols is everything extracted from a single file's tree.
type FileSymbols struct {
	Scopes   []Scope
	Refs     []Reference
	Includes []IncludeDirective
	Diags    []Diagnostic
}

// FileScope returns the top level scope.
func (fs *FileSymbols) FileScope() *Scope {
	if len(fs.Scopes) == 0 {
		return nil
	}
	return &fs.Scopes[0]
}

// ScopeAt returns the innermost scope containing the point. Scopes are
// appended in pre-order, so the last containing scope is the innermost.
func (fs *FileSymbols) ScopeAt(p syntax.Point) int {
	for i := len(fs.Scopes) - 1; i > 0; i-- {
		if fs.Scopes[i].Span.Contains(p) {
			return i
		}
	}
	return 0
}

// LookupInScope returns the last declaration of name in the given scope
// level, honoring last-write-wins for duplicates.
func (fs *FileSymbols) LookupInScope(scope int, name string, callOnly bool) *Declaration {
	if scope < 0 || scope >= len(fs.Scopes) {
		return nil
	}
	decls := fs.Scopes[scope].Decls
	var found *Declaration
	for i := range decls {
		d := &decls[i]
		if d.Name != name {
			continue
		}
		if callOnly && !d.Kind.Callable() {
			continue
		}
		if found == nil || d.Span.StartByte >= found.Span.StartByte {
			found = d
		}
	}
	return found
}

// Walk scope chain from the given scope outward, returning the first hit.
func (fs *FileSymbols) Lookup(scope int, name string, callOnly bool) *Declaration {
	for scope >= 0 && scope < len(fs.Scopes) {
		if d := fs.LookupInScope(scope, name, callOnly); d != nil {
			return d
		}
		scope = fs.Scopes[scope].Parent
	}
	return nil
}

// VisibleFrom collects every declaration visible from the scope, innermost
// first. Names shadowed by an inner scope appear once.
func (fs *FileSymbols) VisibleFrom(scope int) []Declaration {
	seen := make(map[string]bool)
	var out []Declaration
	for scope >= 0 && scope < len(fs.Scopes) {
		decls := fs.Scopes[scope].Decls
		// Last-write-wins within a level: prefer the latest occurrence.
		byName := make(map[string]int, len(decls))
		order := make([]string, 0, len(decls))
		for i := range decls {
			name := decls[i].Name
			if prev, ok := byName[name]; !ok || decls[i].Span.StartByte >= decls[prev].Span.StartByte {
				if !ok {
					order = append(order, name)
				}
				byName[name] = i
			}
		}
		for _, name := range order {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, decls[byName[name]])
		}
		scope = fs.Scopes[scope].Parent
	}
	return out
}
