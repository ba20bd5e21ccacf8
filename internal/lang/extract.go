package lang

import (
	"strings"

	"scadls/internal/syntax"
)

// loopModules bind their argument assignments as variables visible to the
// statement they drive.
var loopModules = map[string]bool{
	"for":              true,
	"intersection_for": true,
	"let":              true,
	"assign":           true,
}

// Extract walks a tree and produces the file's declarations, references,
// includes and extraction diagnostics. Malformed nodes never abort their
// siblings; they surface as diagnostics instead.
func Extract(tree *syntax.Tree, src []byte, path string) *FileSymbols {
	return extract(tree, src, path, false)
}

// ExtractBuiltin extracts a builtin declaration file. Declarations are
// marked builtin and their docs use the lighter builtin scrub.
func ExtractBuiltin(tree *syntax.Tree, src []byte, path string) *FileSymbols {
	return extract(tree, src, path, true)
}

func extract(tree *syntax.Tree, src []byte, path string, builtin bool) *FileSymbols {
	e := &extractor{src: src, path: path, builtin: builtin}
	e.fs = &FileSymbols{}

	root := &syntax.Node{}
	if tree != nil && tree.Root != nil {
		root = tree.Root
	}

	fileScope := e.newScope(-1, root.Span)
	e.statements(root.Children, fileScope)
	return e.fs
}

type extractor struct {
	src     []byte
	path    string
	builtin bool
	fs      *FileSymbols
}

func (e *extractor) newScope(parent int, span syntax.Range) int {
	e.fs.Scopes = append(e.fs.Scopes, Scope{Parent: parent, Span: span})
	return len(e.fs.Scopes) - 1
}

// declare appends to the scope and returns the declaration's index. Indices
// stay valid across arena growth; pointers into the arena would not.
func (e *extractor) declare(scope int, d Declaration) int {
	d.Path = e.path
	d.Builtin = e.builtin
	e.fs.Scopes[scope].Decls = append(e.fs.Scopes[scope].Decls, d)
	return len(e.fs.Scopes[scope].Decls) - 1
}

// statements walks a statement list, attaching doc comments to the
// declaration that follows them at any nesting level.
func (e *extractor) statements(nodes []*syntax.Node, scope int) {
	var doc string
	var docEndRow uint32
	haveDoc := false

	lastDecl := -1
	var lastDeclRow uint32

	for _, node := range nodes {
		if node.IsComment() {
			// A comment on the declaration's own line extends its doc.
			if lastDecl >= 0 && node.Span.StartPoint.Row == lastDeclRow {
				extra := ScrubDoc(node.Content(e.src), e.builtin)
				d := &e.fs.Scopes[scope].Decls[lastDecl]
				if d.Doc != "" {
					d.Doc += "  \n" + extra
				} else {
					d.Doc = "  \n" + extra
				}
				continue
			}
			text := node.Content(e.src)
			if haveDoc && node.Span.EndPoint.Row-docEndRow <= 1 {
				doc += "\n" + text
			} else {
				doc = text
			}
			haveDoc = true
			docEndRow = node.Span.EndPoint.Row
			continue
		}

		pending := ""
		if haveDoc && node.Span.StartPoint.Row-docEndRow <= 1 {
			pending = ScrubDoc(doc, e.builtin)
		}
		haveDoc = false

		if idx := e.statement(node, scope, pending); idx >= 0 {
			lastDecl = idx
			lastDeclRow = node.Span.StartPoint.Row
		}
	}
}

// statement handles one statement node and returns the index of the
// declaration it introduced into scope, or -1.
func (e *extractor) statement(node *syntax.Node, scope int, doc string) int {
	switch node.Kind {
	case syntax.KindAssignment:
		return e.assignment(node, scope, doc)
	case syntax.KindModuleDecl:
		return e.moduleDecl(node, scope, doc)
	case syntax.KindFunctionDecl:
		return e.functionDecl(node, scope, doc)
	case syntax.KindModuleCall:
		e.moduleCall(node, scope)
		return -1
	case syntax.KindUnionBlock:
		inner := e.newScope(scope, node.Span)
		e.statements(node.Children, inner)
		return -1
	case syntax.KindIncludeStmt, syntax.KindUseStmt:
		e.include(node)
		return -1
	case syntax.KindError:
		e.fs.Diags = append(e.fs.Diags, Diagnostic{
			Span:     node.Span,
			Message:  "syntax error",
			Severity: SeverityError,
		})
		return -1
	default:
		return -1
	}
}

func (e *extractor) assignment(node *syntax.Node, scope int, doc string) int {
	left := node.ChildByField("left")
	if left == nil {
		return -1
	}
	if right := node.ChildByField("right"); right != nil {
		e.expression(right)
	}
	return e.declare(scope, Declaration{
		Name:     left.Content(e.src),
		Kind:     DeclVariable,
		Span:     node.Span,
		NameSpan: left.Span,
		Doc:      doc,
	})
}

func (e *extractor) moduleDecl(node *syntax.Node, scope int, doc string) int {
	name := node.ChildByField("name")
	if name == nil {
		return -1
	}
	params := parseParams(e.src, node.ChildByField("parameters"))
	body := node.ChildByField("body")

	decl := e.declare(scope, Declaration{
		Name:     name.Content(e.src),
		Kind:     DeclModule,
		Params:   params,
		Span:     node.Span,
		NameSpan: name.Span,
		Doc:      doc,
		Group:    isGroupModule(e.src, body),
	})

	inner := e.newScope(scope, node.Span)
	e.declareParams(inner, node.ChildByField("parameters"))
	if body != nil {
		e.statement(body, inner, "")
	}
	return decl
}

func (e *extractor) functionDecl(node *syntax.Node, scope int, doc string) int {
	name := node.ChildByField("name")
	if name == nil {
		return -1
	}
	decl := e.declare(scope, Declaration{
		Name:     name.Content(e.src),
		Kind:     DeclFunction,
		Params:   parseParams(e.src, node.ChildByField("parameters")),
		Span:     node.Span,
		NameSpan: name.Span,
		Doc:      doc,
	})

	inner := e.newScope(scope, node.Span)
	e.declareParams(inner, node.ChildByField("parameters"))
	if value := node.ChildByField("value"); value != nil {
		e.expression(value)
	}
	return decl
}

func (e *extractor) moduleCall(node *syntax.Node, scope int) {
	name := node.ChildByField("name")
	args := node.ChildByField("arguments")

	bodyScope := scope
	if name != nil && loopModules[name.Content(e.src)] {
		// Loop bindings are visible to the driven statement.
		bodyScope = e.newScope(scope, node.Span)
		if args != nil {
			for _, arg := range args.Children {
				if arg.Kind != syntax.KindAssignment {
					continue
				}
				if left := arg.ChildByField("left"); left != nil {
					e.declare(bodyScope, Declaration{
						Name:     left.Content(e.src),
						Kind:     DeclVariable,
						Span:     arg.Span,
						NameSpan: left.Span,
					})
				}
			}
		}
	} else if name != nil {
		e.fs.Refs = append(e.fs.Refs, Reference{
			Name: name.Content(e.src),
			Span: name.Span,
			Call: true,
		})
	}

	if args != nil {
		for _, arg := range args.Children {
			if arg.Kind == syntax.KindAssignment {
				// Named argument: the left side is a parameter name,
				// not a reference.
				if right := arg.ChildByField("right"); right != nil {
					e.expression(right)
				}
				continue
			}
			e.expression(arg)
		}
	}

	for _, child := range node.Children {
		if child == name || child == args {
			continue
		}
		e.statement(child, bodyScope, "")
	}
}

func (e *extractor) include(node *syntax.Node) {
	path := node.ChildByField("path")
	if path == nil {
		return
	}
	kind := IncludeTextual
	if node.Kind == syntax.KindUseStmt {
		kind = IncludeUse
	}
	trimmed := strings.TrimLeft(path.Content(e.src), "<\n")
	trimmed = strings.TrimRight(trimmed, ">\n")
	e.fs.Includes = append(e.fs.Includes, IncludeDirective{
		Path:     trimmed,
		Kind:     kind,
		Span:     node.Span,
		PathSpan: path.Span,
	})
}

// expression records references to identifiers and called names.
func (e *extractor) expression(node *syntax.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case syntax.KindIdentifier, syntax.KindSpecialVariable:
		e.fs.Refs = append(e.fs.Refs, Reference{
			Name: node.Content(e.src),
			Span: node.Span,
		})
	case syntax.KindFunctionCall:
		if name := node.ChildByField("name"); name != nil {
			e.fs.Refs = append(e.fs.Refs, Reference{
				Name: name.Content(e.src),
				Span: name.Span,
				Call: true,
			})
		}
		if args := node.ChildByField("arguments"); args != nil {
			for _, arg := range args.Children {
				if arg.Kind == syntax.KindAssignment {
					if right := arg.ChildByField("right"); right != nil {
						e.expression(right)
					}
					continue
				}
				e.expression(arg)
			}
		}
	case syntax.KindComment, syntax.KindNumber, syntax.KindString:
	default:
		for _, child := range node.Children {
			e.expression(child)
		}
	}
}

func (e *extractor) declareParams(scope int, params *syntax.Node) {
	if params == nil {
		return
	}
	for _, p := range parseParams(e.src, params) {
		e.declare(scope, Declaration{
			Name:     p.Name,
			Kind:     DeclVariable,
			Span:     p.Span,
			NameSpan: p.Span,
		})
	}
}

// parseParams flattens a parameters node. Special variables are skipped:
// they are dynamically scoped and always resolvable.
func parseParams(src []byte, params *syntax.Node) []Param {
	if params == nil {
		return nil
	}
	var out []Param
	for _, child := range params.Children {
		inner := child
		if child.Kind == syntax.KindParameter && len(child.Children) > 0 {
			inner = child.Children[0]
		}
		switch inner.Kind {
		case syntax.KindIdentifier:
			out = append(out, Param{Name: inner.Content(src), Span: inner.Span})
		case syntax.KindAssignment:
			left := inner.ChildByField("left")
			right := inner.ChildByField("right")
			if left == nil || right == nil || left.Kind == syntax.KindSpecialVariable {
				continue
			}
			out = append(out, Param{
				Name:    left.Content(src),
				Default: right.Content(src),
				Span:    left.Span,
			})
		}
	}
	return out
}

func isGroupModule(src []byte, body *syntax.Node) bool {
	if body == nil || body.Kind != syntax.KindUnionBlock || len(body.Children) == 0 {
		return false
	}
	first := body.Children[0]
	if !first.IsComment() {
		return false
	}
	text := first.Content(src)
	return text == "/* group */" || text == "// group"
}
