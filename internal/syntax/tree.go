// Package syntax provides the concrete syntax trees the rest of the server
// consumes. Node kinds follow the tree-sitter openscad grammar so the
// built-in parser and the tree-sitter backed provider are interchangeable.
package syntax

// Node kinds produced by both providers.
const (
	KindSourceFile      = "source_file"
	KindModuleDecl      = "module_declaration"
	KindFunctionDecl    = "function_declaration"
	KindAssignment      = "assignment"
	KindParameters      = "parameters"
	KindParameter       = "parameter"
	KindSpecialVariable = "special_variable"
	KindIdentifier      = "identifier"
	KindModuleCall      = "module_call"
	KindFunctionCall    = "function_call"
	KindArguments       = "arguments"
	KindIncludeStmt     = "include_statement"
	KindUseStmt         = "use_statement"
	KindIncludePath     = "include_path"
	KindComment         = "comment"
	KindUnionBlock      = "union_block"
	KindExpression      = "expression"
	KindNumber          = "number"
	KindString          = "string"
	KindError           = "ERROR"
)

// Point is a zero-based row/column position. Columns are byte offsets
// within the line, matching tree-sitter's convention.
type Point struct {
	Row    uint32
	Column uint32
}

func (p Point) Before(q Point) bool {
	return p.Row < q.Row || (p.Row == q.Row && p.Column < q.Column)
}

type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// Contains reports whether the point falls inside the range. The end is
// inclusive so a cursor sitting just past the last character still hits.
func (r Range) Contains(p Point) bool {
	if p.Before(r.StartPoint) {
		return false
	}
	return p.Before(r.EndPoint) || p == r.EndPoint
}

func (r Range) ContainsByte(b uint32) bool {
	return b >= r.StartByte && b <= r.EndByte
}

type Node struct {
	Kind     string
	Span     Range
	Children []*Node
	Missing  bool

	fields map[string]*Node
}

func (n *Node) SetField(name string, child *Node) {
	if n.fields == nil {
		n.fields = make(map[string]*Node, 2)
	}
	n.fields[name] = child
}

// ChildByField returns the named field child (e.g. "name", "parameters",
// "body", "left", "right") or nil.
func (n *Node) ChildByField(name string) *Node {
	if n == nil {
		return nil
	}
	return n.fields[name]
}

// Content returns the source text the node spans.
func (n *Node) Content(src []byte) string {
	if n == nil || int(n.Span.EndByte) > len(src) {
		return ""
	}
	return string(src[n.Span.StartByte:n.Span.EndByte])
}

func (n *Node) IsError() bool   { return n.Kind == KindError || n.Missing }
func (n *Node) IsComment() bool { return n.Kind == KindComment }

func (n *Node) IsIncludeStatement() bool {
	return n.Kind == KindIncludeStmt || n.Kind == KindUseStmt
}

type Tree struct {
	Root *Node

	// handle keeps provider-private state (the tree-sitter tree for the
	// dlopen provider, statement bookkeeping for the built-in one).
	handle any
}

// Edit describes a contiguous text replacement, in both byte offsets and
// points, for incremental reparsing.
type Edit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Provider parses source text into trees. Reparse may take advantage of the
// previous tree; implementations fall back to a full parse when they cannot.
type Provider interface {
	Parse(text []byte) (*Tree, error)
	Reparse(old *Tree, text []byte, edit Edit) (*Tree, error)
}

// LeafAt descends to the deepest node containing the point.
func (t *Tree) LeafAt(p Point) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	node := t.Root
	for {
		var next *Node
		for _, child := range node.Children {
			if child.Span.Contains(p) {
				next = child
				break
			}
		}
		if next == nil {
			return node
		}
		node = next
	}
}

// Ancestors returns the chain from the root down to (excluding) the deepest
// node containing the point, innermost last.
func (t *Tree) Ancestors(p Point) []*Node {
	if t == nil || t.Root == nil {
		return nil
	}
	var chain []*Node
	node := t.Root
	for {
		chain = append(chain, node)
		var next *Node
		for _, child := range node.Children {
			if child.Span.Contains(p) {
				next = child
				break
			}
		}
		if next == nil {
			return chain
		}
		node = next
	}
}

// ErrorNodes collects every ERROR or missing node in the tree.
func (t *Tree) ErrorNodes() []*Node {
	if t == nil || t.Root == nil {
		return nil
	}
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsError() {
			out = append(out, n)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(t.Root)
	return out
}

// Walk visits every node depth-first. Returning false stops descent into
// the node's children.
func (t *Tree) Walk(visit func(n *Node) bool) {
	if t == nil || t.Root == nil {
		return
	}
	var walk func(n *Node)
	walk = func(n *Node) {
		if !visit(n) {
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(t.Root)
}

// PointToByte converts a point into a byte offset within text.
func PointToByte(text []byte, p Point) uint32 {
	var offset uint32
	var row uint32
	for row < p.Row {
		idx := indexByte(text[offset:], '\n')
		if idx < 0 {
			return uint32(len(text))
		}
		offset += uint32(idx) + 1
		row++
	}
	offset += p.Column
	if offset > uint32(len(text)) {
		offset = uint32(len(text))
	}
	return offset
}

// ByteToPoint converts a byte offset into a point.
func ByteToPoint(text []byte, offset uint32) Point {
	if offset > uint32(len(text)) {
		offset = uint32(len(text))
	}
	var p Point
	var lineStart uint32
	for i := uint32(0); i < offset; i++ {
		if text[i] == '\n' {
			p.Row++
			lineStart = i + 1
		}
	}
	p.Column = offset - lineStart
	return p
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
