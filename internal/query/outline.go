package query

import (
	"scadls/internal/core/errors"
	"scadls/internal/lang"
	"scadls/internal/syntax"
	"scadls/internal/workspace"
)

// Symbol is one outline entry. Children hold parameters and declarations
// nested inside the body.
type Symbol struct {
	Name          string
	Kind          lang.DeclKind
	Span          syntax.Range
	SelectionSpan syntax.Range
	Children      []Symbol
}

// Outline returns the document symbol tree: declarations at every nesting
// level, with blocks and wrapping module calls flattened away.
func (e *Engine) Outline(snap *workspace.Snapshot, path string) ([]Symbol, error) {
	defer observe("outline")()

	entry := snap.Entry(path)
	if entry == nil || entry.Tree == nil || entry.Tree.Root == nil {
		return nil, errors.Newf(errors.CodeNotFound, "unknown document %s", path)
	}
	return outlineNodes(entry.Text, entry.Tree.Root.Children), nil
}

func outlineNodes(src []byte, nodes []*syntax.Node) []Symbol {
	var out []Symbol
	for _, n := range nodes {
		switch n.Kind {
		case syntax.KindModuleDecl:
			if sym, ok := declSymbol(src, n, lang.DeclModule); ok {
				if body := n.ChildByField("body"); body != nil {
					sym.Children = append(sym.Children, outlineNodes(src, body.Children)...)
				}
				out = append(out, sym)
			}
		case syntax.KindFunctionDecl:
			if sym, ok := declSymbol(src, n, lang.DeclFunction); ok {
				out = append(out, sym)
			}
		case syntax.KindAssignment:
			left := n.ChildByField("left")
			if left == nil {
				continue
			}
			out = append(out, Symbol{
				Name:          left.Content(src),
				Kind:          lang.DeclVariable,
				Span:          n.Span,
				SelectionSpan: left.Span,
			})
		case syntax.KindUnionBlock:
			out = append(out, outlineNodes(src, n.Children)...)
		case syntax.KindModuleCall:
			// Transform calls wrap a child statement; surface what is
			// declared inside without listing the call itself.
			if body := n.ChildByField("body"); body != nil {
				if body.Kind == syntax.KindUnionBlock {
					out = append(out, outlineNodes(src, body.Children)...)
				} else {
					out = append(out, outlineNodes(src, []*syntax.Node{body})...)
				}
			}
		}
	}
	return out
}

func declSymbol(src []byte, n *syntax.Node, kind lang.DeclKind) (Symbol, bool) {
	name := n.ChildByField("name")
	if name == nil {
		return Symbol{}, false
	}
	sym := Symbol{
		Name:          name.Content(src),
		Kind:          kind,
		Span:          n.Span,
		SelectionSpan: name.Span,
	}
	if params := n.ChildByField("parameters"); params != nil {
		for _, p := range params.Children {
			target := p
			if p.Kind == syntax.KindParameter && len(p.Children) > 0 {
				target = p.Children[0]
			}
			if target.Kind == syntax.KindAssignment {
				if left := target.ChildByField("left"); left != nil {
					target = left
				}
			}
			if target.Kind != syntax.KindIdentifier && target.Kind != syntax.KindSpecialVariable {
				continue
			}
			sym.Children = append(sym.Children, Symbol{
				Name:          target.Content(src),
				Kind:          lang.DeclVariable,
				Span:          p.Span,
				SelectionSpan: target.Span,
			})
		}
	}
	return sym, true
}
