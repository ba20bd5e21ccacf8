//go:build cgo

package syntax

import (
	"errors"
	"sync"
	"time"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// SitterProvider parses with a tree-sitter openscad grammar loaded from a
// shared object at runtime. Trees are converted into the same Node shape the
// built-in provider produces, so consumers never see which backend ran.
type SitterProvider struct {
	lang *sitter.Language
	pool *parserPool
}

// NewSitterProvider loads the grammar at path (a tree-sitter-openscad
// .so/.dylib/.dll exporting tree_sitter_openscad).
func NewSitterProvider(path string) (*SitterProvider, error) {
	lang, err := loadGrammar(path)
	if err != nil {
		return nil, err
	}
	return &SitterProvider{lang: lang, pool: newParserPool(lang)}, nil
}

func (sp *SitterProvider) Parse(text []byte) (*Tree, error) {
	return sp.parse(text, nil)
}

func (sp *SitterProvider) Reparse(old *Tree, text []byte, edit Edit) (*Tree, error) {
	oldTree, _ := treeHandle(old)
	if oldTree != nil {
		oldTree.Edit(&sitter.InputEdit{
			StartByte:      uint(edit.StartByte),
			OldEndByte:     uint(edit.OldEndByte),
			NewEndByte:     uint(edit.NewEndByte),
			StartPosition:  sitter.Point{Row: uint(edit.StartPoint.Row), Column: uint(edit.StartPoint.Column)},
			OldEndPosition: sitter.Point{Row: uint(edit.OldEndPoint.Row), Column: uint(edit.OldEndPoint.Column)},
			NewEndPosition: sitter.Point{Row: uint(edit.NewEndPoint.Row), Column: uint(edit.NewEndPoint.Column)},
		})
	}
	return sp.parse(text, oldTree)
}

func (sp *SitterProvider) parse(text []byte, old *sitter.Tree) (*Tree, error) {
	p := sp.pool.get()
	defer sp.pool.put(p)

	tree := p.Parse(text, old)
	if tree == nil {
		return nil, errors.New("parse failed")
	}
	root := convertNode(tree.RootNode())
	return &Tree{Root: root, handle: tree}, nil
}

func treeHandle(t *Tree) (*sitter.Tree, bool) {
	if t == nil {
		return nil, false
	}
	st, ok := t.handle.(*sitter.Tree)
	return st, ok
}

// Close releases the underlying tree-sitter tree, if any. The converted
// nodes stay valid.
func (t *Tree) Close() {
	if st, ok := treeHandle(t); ok && st != nil {
		st.Close()
		t.handle = nil
	}
}

func convertNode(n *sitter.Node) *Node {
	out := &Node{
		Kind:    n.Kind(),
		Missing: n.IsMissing(),
		Span: Range{
			StartByte:  uint32(n.StartByte()),
			EndByte:    uint32(n.EndByte()),
			StartPoint: Point{Row: uint32(n.StartPosition().Row), Column: uint32(n.StartPosition().Column)},
			EndPoint:   Point{Row: uint32(n.EndPosition().Row), Column: uint32(n.EndPosition().Column)},
		},
	}
	count := n.ChildCount()
	if count == 0 {
		return out
	}
	out.Children = make([]*Node, 0, count)
	for i := uint(0); i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		converted := convertNode(child)
		out.Children = append(out.Children, converted)
		if field := n.FieldNameForChild(uint32(i)); field != "" {
			out.SetField(field, converted)
		}
	}
	return out
}

// parserPool recycles parser instances to avoid per-parse allocation.
type parserPool struct {
	lang *sitter.Language
	pool sync.Pool

	leases   map[*sitter.Parser]time.Time
	leasesMu sync.Mutex
}

func newParserPool(lang *sitter.Language) *parserPool {
	p := &parserPool{
		lang:   lang,
		leases: make(map[*sitter.Parser]time.Time),
	}
	p.pool = sync.Pool{
		New: func() any {
			sp := sitter.NewParser()
			sp.SetLanguage(lang)
			return sp
		},
	}
	return p
}

func (p *parserPool) get() *sitter.Parser {
	sp := p.pool.Get().(*sitter.Parser)
	sp.SetLanguage(p.lang)

	p.leasesMu.Lock()
	p.leases[sp] = time.Now()
	p.leasesMu.Unlock()

	return sp
}

func (p *parserPool) put(sp *sitter.Parser) {
	if sp == nil {
		return
	}
	p.leasesMu.Lock()
	delete(p.leases, sp)
	p.leasesMu.Unlock()

	sp.Reset()
	p.pool.Put(sp)
}
