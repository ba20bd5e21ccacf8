package syntax

// BuiltinProvider is the default tree provider. It needs no shared objects
// or cgo and produces trees with the same node kinds as the tree-sitter
// backed provider.
type BuiltinProvider struct{}

func NewProvider() *BuiltinProvider { return &BuiltinProvider{} }

func (bp *BuiltinProvider) Parse(text []byte) (*Tree, error) {
	children, _ := parseText(text, 0, Point{})
	root := &Node{
		Kind: KindSourceFile,
		Span: Range{
			StartByte: 0,
			EndByte:   uint32(len(text)),
			EndPoint:  ByteToPoint(text, uint32(len(text))),
		},
		Children: children,
	}
	return &Tree{Root: root}, nil
}

// Reparse splices a statement-level reparse of the edited region between the
// untouched prefix and suffix statements of the old tree. When the splice
// cannot be validated it falls back to a full parse, so the result is always
// identical to Parse(text).
func (bp *BuiltinProvider) Reparse(old *Tree, text []byte, edit Edit) (*Tree, error) {
	if old == nil || old.Root == nil {
		return bp.Parse(text)
	}

	stmts := old.Root.Children
	byteDelta := int64(edit.NewEndByte) - int64(edit.OldEndByte)
	rowDelta := int64(edit.NewEndPoint.Row) - int64(edit.OldEndPoint.Row)

	// Statements fully before the edit are reusable. The last one is
	// dropped so the region parse re-reads the boundary.
	prefixEnd := 0
	for prefixEnd < len(stmts) && stmts[prefixEnd].Span.EndByte < edit.StartByte {
		prefixEnd++
	}
	if prefixEnd > 0 {
		prefixEnd--
	}

	// Statements fully after the edit and on a later row than the old edit
	// end shift without column changes. The first one is dropped as the
	// boundary margin.
	suffixStart := len(stmts)
	for suffixStart > 0 {
		s := stmts[suffixStart-1]
		if s.Span.StartByte > edit.OldEndByte && s.Span.StartPoint.Row > edit.OldEndPoint.Row {
			suffixStart--
			continue
		}
		break
	}
	if suffixStart < len(stmts) {
		suffixStart++
	}
	if suffixStart <= prefixEnd {
		return bp.Parse(text)
	}

	var regionStart uint32
	var regionStartPoint Point
	if prefixEnd > 0 {
		regionStart = stmts[prefixEnd-1].Span.EndByte
		regionStartPoint = stmts[prefixEnd-1].Span.EndPoint
	}

	regionEnd := uint32(len(text))
	if suffixStart < len(stmts) {
		newStart := int64(stmts[suffixStart].Span.StartByte) + byteDelta
		if newStart < int64(regionStart) || newStart > int64(len(text)) {
			return bp.Parse(text)
		}
		regionEnd = uint32(newStart)
	}

	middle, clean := parseText(text[regionStart:regionEnd], regionStart, regionStartPoint)
	if !clean {
		return bp.Parse(text)
	}

	children := make([]*Node, 0, prefixEnd+len(middle)+(len(stmts)-suffixStart))
	children = append(children, stmts[:prefixEnd]...)
	children = append(children, middle...)
	for _, s := range stmts[suffixStart:] {
		children = append(children, shiftNode(s, byteDelta, rowDelta))
	}

	root := &Node{
		Kind: KindSourceFile,
		Span: Range{
			StartByte: 0,
			EndByte:   uint32(len(text)),
			EndPoint:  ByteToPoint(text, uint32(len(text))),
		},
		Children: children,
	}
	return &Tree{Root: root}, nil
}

// shiftNode deep-copies a node with its span moved by the edit delta. Copies
// keep old trees usable by snapshot holders.
func shiftNode(n *Node, byteDelta, rowDelta int64) *Node {
	out := &Node{
		Kind:    n.Kind,
		Missing: n.Missing,
		Span: Range{
			StartByte:  uint32(int64(n.Span.StartByte) + byteDelta),
			EndByte:    uint32(int64(n.Span.EndByte) + byteDelta),
			StartPoint: Point{Row: uint32(int64(n.Span.StartPoint.Row) + rowDelta), Column: n.Span.StartPoint.Column},
			EndPoint:   Point{Row: uint32(int64(n.Span.EndPoint.Row) + rowDelta), Column: n.Span.EndPoint.Column},
		},
	}
	if len(n.Children) > 0 {
		out.Children = make([]*Node, len(n.Children))
		byChild := make(map[*Node]*Node, len(n.Children))
		for i, child := range n.Children {
			shifted := shiftNode(child, byteDelta, rowDelta)
			out.Children[i] = shifted
			byChild[child] = shifted
		}
		for name, child := range n.fields {
			if shifted, ok := byChild[child]; ok {
				out.SetField(name, shifted)
			}
		}
	}
	return out
}
