package syntax

// The built-in provider parses the OpenSCAD surface the extractor cares
// about: declarations, assignments, call statements, blocks and inclusion
// directives. Expressions are kept shallow but identifier and call nodes
// inside them carry exact ranges so references can be indexed. Malformed
// statements become ERROR nodes and never abort their siblings.

type parser struct {
	src  []byte
	base uint32
	toks []token
	pos  int

	// incomplete is set when a construct was cut off at the end of the
	// parsed region (missing body, unterminated block). Region reparses
	// use it to reject unsafe splice points.
	incomplete bool
}

func parseText(src []byte, baseByte uint32, basePoint Point) ([]*Node, bool) {
	lx := newLexer(src, baseByte, basePoint)
	toks := lx.scan()
	p := &parser{src: src, base: baseByte, toks: toks}
	if lx.unterminated {
		p.incomplete = true
	}
	nodes := p.parseStatements(false)
	return nodes, !p.incomplete
}

func (p *parser) cur() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) atPunct(text string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == text
}

func (p *parser) atEOF() bool { return p.cur().kind == tokEOF }

func tokNode(kind string, t token) *Node {
	return &Node{Kind: kind, Span: Range{
		StartByte: t.start, EndByte: t.end,
		StartPoint: t.sp, EndPoint: t.ep,
	}}
}

func identNode(t token) *Node {
	kind := KindIdentifier
	if len(t.text) > 0 && t.text[0] == '$' {
		kind = KindSpecialVariable
	}
	return tokNode(kind, t)
}

func extendSpan(n *Node, r Range) {
	if n.Span.StartByte == 0 && n.Span.EndByte == 0 {
		n.Span = r
		return
	}
	if r.StartByte < n.Span.StartByte {
		n.Span.StartByte = r.StartByte
		n.Span.StartPoint = r.StartPoint
	}
	if r.EndByte > n.Span.EndByte {
		n.Span.EndByte = r.EndByte
		n.Span.EndPoint = r.EndPoint
	}
}

func tokRange(t token) Range {
	return Range{StartByte: t.start, EndByte: t.end, StartPoint: t.sp, EndPoint: t.ep}
}

func (p *parser) parseStatements(stopOnBrace bool) []*Node {
	var out []*Node
	for !p.atEOF() {
		if stopOnBrace && p.atPunct("}") {
			break
		}
		if p.atPunct(";") {
			p.next()
			continue
		}
		if stmt := p.parseStatement(); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (p *parser) parseStatement() *Node {
	t := p.cur()
	switch {
	case t.kind == tokComment:
		p.next()
		return tokNode(KindComment, t)
	case t.kind == tokIdent && (t.text == "include" || t.text == "use"):
		return p.parseInclude()
	case t.kind == tokIdent && t.text == "module":
		return p.parseModule()
	case t.kind == tokIdent && t.text == "function":
		return p.parseFunction()
	case t.kind == tokIdent:
		if n := p.peekAt(1); n.kind == tokPunct && n.text == "=" {
			if e := p.peekAt(2); !(e.kind == tokPunct && e.text == "=") {
				return p.parseAssignment()
			}
		}
		if n := p.peekAt(1); n.kind == tokPunct && n.text == "(" {
			return p.parseCallStatement()
		}
		return p.parseErrorStatement()
	case t.kind == tokPunct && t.text == "{":
		return p.parseBlock()
	case t.kind == tokPunct && (t.text == "%" || t.text == "#" || t.text == "!" || t.text == "*"):
		// Modifier characters prefix a single statement.
		p.next()
		inner := p.parseStatement()
		if inner != nil {
			extendSpan(inner, tokRange(t))
		}
		return inner
	default:
		return p.parseErrorStatement()
	}
}

// parseErrorStatement consumes up to the next statement boundary and wraps
// the skipped region in an ERROR node. Recognized tokens stay as children
// so position lookups still find them, the way tree-sitter recovers.
func (p *parser) parseErrorStatement() *Node {
	first := p.next()
	node := tokNode(KindError, first)
	p.errorChild(node, first)
	for !p.atEOF() {
		if p.atPunct("}") {
			break
		}
		t := p.next()
		extendSpan(node, tokRange(t))
		p.errorChild(node, t)
		if t.kind == tokPunct && t.text == ";" {
			break
		}
	}
	return node
}

func (p *parser) errorChild(node *Node, t token) {
	switch t.kind {
	case tokIdent:
		node.Children = append(node.Children, identNode(t))
	case tokNumber:
		node.Children = append(node.Children, tokNode(KindNumber, t))
	case tokString:
		node.Children = append(node.Children, tokNode(KindString, t))
	case tokComment:
		node.Children = append(node.Children, tokNode(KindComment, t))
	}
}

func (p *parser) parseInclude() *Node {
	kw := p.next()
	kind := KindIncludeStmt
	if kw.text == "use" {
		kind = KindUseStmt
	}
	node := tokNode(kind, kw)

	if !p.atPunct("<") {
		node.Kind = KindError
		return node
	}
	open := p.next()

	// The path is scanned from raw source: the lexer has no notion of
	// angle-bracketed paths.
	end := open.end
	ep := open.ep
	for int(end-p.base) < len(p.src) {
		c := p.src[end-p.base]
		if c == '\n' {
			break
		}
		end++
		ep.Column++
		if c == '>' {
			break
		}
	}
	path := &Node{Kind: KindIncludePath, Span: Range{
		StartByte: open.start, EndByte: end,
		StartPoint: open.sp, EndPoint: ep,
	}}
	node.Children = append(node.Children, path)
	node.SetField("path", path)
	extendSpan(node, path.Span)

	for !p.atEOF() && p.cur().start < end {
		p.next()
	}
	if p.atPunct(";") {
		t := p.next()
		extendSpan(node, tokRange(t))
	}
	return node
}

func (p *parser) parseModule() *Node {
	kw := p.next()
	node := tokNode(KindModuleDecl, kw)

	if p.cur().kind != tokIdent {
		return p.recoverDeclaration(node)
	}
	name := identNode(p.next())
	node.Children = append(node.Children, name)
	node.SetField("name", name)
	extendSpan(node, name.Span)

	params, ok := p.parseParameters()
	if params != nil {
		node.Children = append(node.Children, params)
		node.SetField("parameters", params)
		extendSpan(node, params.Span)
	}
	if !ok {
		return p.recoverDeclaration(node)
	}

	if p.atEOF() {
		p.incomplete = true
		return node
	}
	body := p.parseStatement()
	if body != nil {
		node.Children = append(node.Children, body)
		node.SetField("body", body)
		extendSpan(node, body.Span)
	} else {
		p.incomplete = true
	}
	return node
}

func (p *parser) parseFunction() *Node {
	kw := p.next()
	node := tokNode(KindFunctionDecl, kw)

	if p.cur().kind != tokIdent {
		return p.recoverDeclaration(node)
	}
	name := identNode(p.next())
	node.Children = append(node.Children, name)
	node.SetField("name", name)
	extendSpan(node, name.Span)

	params, ok := p.parseParameters()
	if params != nil {
		node.Children = append(node.Children, params)
		node.SetField("parameters", params)
		extendSpan(node, params.Span)
	}
	if !ok {
		return p.recoverDeclaration(node)
	}

	if !p.atPunct("=") {
		return p.recoverDeclaration(node)
	}
	p.next()

	value := p.parseExpr(exprStops{";": true})
	if value != nil {
		node.Children = append(node.Children, value)
		node.SetField("value", value)
		extendSpan(node, value.Span)
	}
	if p.atPunct(";") {
		t := p.next()
		extendSpan(node, tokRange(t))
	} else if p.atEOF() {
		p.incomplete = true
	}
	return node
}

// recoverDeclaration turns a half-parsed declaration into an ERROR node and
// resynchronizes at the next statement boundary.
func (p *parser) recoverDeclaration(node *Node) *Node {
	err := &Node{Kind: KindError, Span: node.Span, Children: node.Children}
	depth := 0
	for !p.atEOF() {
		t := p.cur()
		if t.kind == tokPunct {
			switch t.text {
			case "{":
				depth++
			case "}":
				if depth == 0 {
					return err
				}
				depth--
				p.next()
				extendSpan(err, tokRange(t))
				if depth == 0 {
					return err
				}
				continue
			case ";":
				if depth == 0 {
					p.next()
					extendSpan(err, tokRange(t))
					return err
				}
			}
		}
		p.next()
		extendSpan(err, tokRange(t))
	}
	p.incomplete = true
	return err
}

func (p *parser) parseParameters() (*Node, bool) {
	if !p.atPunct("(") {
		return nil, false
	}
	open := p.next()
	node := tokNode(KindParameters, open)

	for {
		if p.atPunct(")") {
			t := p.next()
			extendSpan(node, tokRange(t))
			return node, true
		}
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			p.incomplete = true
			return node, false
		case t.kind == tokPunct && (t.text == ";" || t.text == "{" || t.text == "}"):
			return node, false
		case t.kind == tokPunct && t.text == ",":
			p.next()
		case t.kind == tokComment:
			p.next()
		case t.kind == tokIdent:
			param := p.parseParameter()
			node.Children = append(node.Children, param)
			extendSpan(node, param.Span)
		default:
			// Unexpected token inside the list; skip it.
			p.next()
		}
	}
}

func (p *parser) parseParameter() *Node {
	name := identNode(p.next())
	param := &Node{Kind: KindParameter, Span: name.Span}

	if p.atPunct("=") {
		eq := p.next()
		assign := &Node{Kind: KindAssignment, Span: name.Span}
		assign.Children = append(assign.Children, name)
		assign.SetField("left", name)
		extendSpan(assign, tokRange(eq))
		value := p.parseExpr(exprStops{",": true, ")": true, ";": true, "{": true, "}": true})
		if value != nil {
			assign.Children = append(assign.Children, value)
			assign.SetField("right", value)
			extendSpan(assign, value.Span)
		}
		param.Children = append(param.Children, assign)
		param.Span = assign.Span
		return param
	}

	param.Children = append(param.Children, name)
	return param
}

func (p *parser) parseAssignment() *Node {
	left := identNode(p.next())
	node := &Node{Kind: KindAssignment, Span: left.Span}
	node.Children = append(node.Children, left)
	node.SetField("left", left)

	eq := p.next()
	extendSpan(node, tokRange(eq))

	right := p.parseExpr(exprStops{";": true, "}": true})
	if right != nil {
		node.Children = append(node.Children, right)
		node.SetField("right", right)
		extendSpan(node, right.Span)
	}
	if p.atPunct(";") {
		t := p.next()
		extendSpan(node, tokRange(t))
	} else if p.atEOF() {
		p.incomplete = true
	}
	return node
}

func (p *parser) parseCallStatement() *Node {
	name := identNode(p.next())
	node := &Node{Kind: KindModuleCall, Span: name.Span}
	node.Children = append(node.Children, name)
	node.SetField("name", name)

	args, ok := p.parseArguments()
	if args != nil {
		node.Children = append(node.Children, args)
		node.SetField("arguments", args)
		extendSpan(node, args.Span)
	}
	if !ok {
		return p.recoverDeclaration(node)
	}

	for {
		switch {
		case p.atPunct(";"):
			t := p.next()
			extendSpan(node, tokRange(t))
			return node
		case p.atPunct("{"):
			body := p.parseBlock()
			node.Children = append(node.Children, body)
			if node.ChildByField("body") == nil {
				node.SetField("body", body)
			}
			extendSpan(node, body.Span)
			if !p.atIdent("else") {
				return node
			}
		case p.atIdent("else"):
			t := p.next()
			extendSpan(node, tokRange(t))
			if p.atEOF() {
				p.incomplete = true
				return node
			}
			child := p.parseStatement()
			if child != nil {
				node.Children = append(node.Children, child)
				extendSpan(node, child.Span)
			}
			return node
		case p.cur().kind == tokIdent || p.atPunct("%") || p.atPunct("#") || p.atPunct("!") || p.atPunct("*"):
			// Chained child statement: translate(...) cube(...);
			child := p.parseStatement()
			if child != nil {
				node.Children = append(node.Children, child)
				if node.ChildByField("body") == nil {
					node.SetField("body", child)
				}
				extendSpan(node, child.Span)
			}
			return node
		case p.atEOF():
			p.incomplete = true
			return node
		default:
			return node
		}
	}
}

func (p *parser) atIdent(text string) bool {
	t := p.cur()
	return t.kind == tokIdent && t.text == text
}

func (p *parser) parseArguments() (*Node, bool) {
	if !p.atPunct("(") {
		return nil, false
	}
	open := p.next()
	node := tokNode(KindArguments, open)

	for {
		if p.atPunct(")") {
			t := p.next()
			extendSpan(node, tokRange(t))
			return node, true
		}
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			p.incomplete = true
			return node, false
		case t.kind == tokPunct && (t.text == ";" || t.text == "{" || t.text == "}"):
			return node, false
		case t.kind == tokPunct && t.text == ",":
			p.next()
		case t.kind == tokComment:
			p.next()
		default:
			arg := p.parseArgument()
			if arg != nil {
				node.Children = append(node.Children, arg)
				extendSpan(node, arg.Span)
			}
		}
	}
}

func (p *parser) parseArgument() *Node {
	t := p.cur()
	if t.kind == tokIdent {
		if n := p.peekAt(1); n.kind == tokPunct && n.text == "=" {
			if e := p.peekAt(2); !(e.kind == tokPunct && e.text == "=") {
				left := identNode(p.next())
				eq := p.next()
				assign := &Node{Kind: KindAssignment, Span: left.Span}
				assign.Children = append(assign.Children, left)
				assign.SetField("left", left)
				extendSpan(assign, tokRange(eq))
				value := p.parseExpr(exprStops{",": true, ")": true, ";": true, "{": true, "}": true})
				if value != nil {
					assign.Children = append(assign.Children, value)
					assign.SetField("right", value)
					extendSpan(assign, value.Span)
				}
				return assign
			}
		}
	}
	return p.parseExpr(exprStops{",": true, ")": true, ";": true, "{": true, "}": true})
}

type exprStops map[string]bool

func (p *parser) parseExpr(stops exprStops) *Node {
	var children []*Node
	var span Range
	have := false

	add := func(n *Node) {
		children = append(children, n)
		if !have {
			span = n.Span
			have = true
		} else {
			if n.Span.StartByte < span.StartByte {
				span.StartByte = n.Span.StartByte
				span.StartPoint = n.Span.StartPoint
			}
			if n.Span.EndByte > span.EndByte {
				span.EndByte = n.Span.EndByte
				span.EndPoint = n.Span.EndPoint
			}
		}
	}
	addTok := func(t token) {
		if !have {
			span = tokRange(t)
			have = true
			return
		}
		if t.end > span.EndByte {
			span.EndByte = t.end
			span.EndPoint = t.ep
		}
	}

	for {
		t := p.cur()
		switch {
		case t.kind == tokEOF:
			p.incomplete = true
			return wrapExpr(children, span, have)
		case t.kind == tokPunct && stops[t.text]:
			return wrapExpr(children, span, have)
		case t.kind == tokPunct && (t.text == ";" || t.text == "}"):
			return wrapExpr(children, span, have)
		case t.kind == tokIdent:
			if n := p.peekAt(1); n.kind == tokPunct && n.text == "(" {
				name := identNode(p.next())
				call := &Node{Kind: KindFunctionCall, Span: name.Span}
				call.Children = append(call.Children, name)
				call.SetField("name", name)
				args, _ := p.parseArguments()
				if args != nil {
					call.Children = append(call.Children, args)
					call.SetField("arguments", args)
					extendSpan(call, args.Span)
				}
				add(call)
				continue
			}
			add(identNode(p.next()))
		case t.kind == tokNumber:
			add(tokNode(KindNumber, p.next()))
		case t.kind == tokString:
			add(tokNode(KindString, p.next()))
		case t.kind == tokComment:
			add(tokNode(KindComment, p.next()))
		case t.kind == tokPunct && t.text == "(":
			open := p.next()
			addTok(open)
			inner := p.parseExpr(exprStops{")": true})
			if inner != nil {
				add(inner)
			}
			if p.atPunct(")") {
				addTok(p.next())
			}
		case t.kind == tokPunct && t.text == "[":
			open := p.next()
			addTok(open)
			inner := p.parseExpr(exprStops{"]": true})
			if inner != nil {
				add(inner)
			}
			if p.atPunct("]") {
				addTok(p.next())
			}
		default:
			addTok(p.next())
		}
	}
}

func wrapExpr(children []*Node, span Range, have bool) *Node {
	if !have {
		return nil
	}
	if len(children) == 1 && children[0].Span == span {
		return children[0]
	}
	return &Node{Kind: KindExpression, Span: span, Children: children}
}

func (p *parser) parseBlock() *Node {
	open := p.next()
	node := tokNode(KindUnionBlock, open)
	children := p.parseStatements(true)
	node.Children = children
	for _, child := range children {
		extendSpan(node, child.Span)
	}
	if p.atPunct("}") {
		t := p.next()
		extendSpan(node, tokRange(t))
	} else {
		p.incomplete = true
	}
	return node
}
