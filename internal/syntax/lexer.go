package syntax

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokComment
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string
	start uint32
	end   uint32
	sp    Point
	ep    Point
}

type lexer struct {
	src      []byte
	offset   uint32
	point    Point
	baseByte uint32
	// unterminated is set when the region ends inside a string or block
	// comment, which makes the region unsafe for splicing.
	unterminated bool
}

func newLexer(src []byte, baseByte uint32, basePoint Point) *lexer {
	return &lexer{src: src, point: basePoint, baseByte: baseByte}
}

func (l *lexer) advance() byte {
	c := l.src[l.offset]
	l.offset++
	if c == '\n' {
		l.point.Row++
		l.point.Column = 0
	} else {
		l.point.Column++
	}
	return c
}

func (l *lexer) peek() byte {
	if int(l.offset) >= len(l.src) {
		return 0
	}
	return l.src[l.offset]
}

func (l *lexer) peek2() byte {
	if int(l.offset)+1 >= len(l.src) {
		return 0
	}
	return l.src[l.offset+1]
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (l *lexer) scan() []token {
	var toks []token
	for int(l.offset) < len(l.src) {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peek2() == '/':
			toks = append(toks, l.lexLineComment())
		case c == '/' && l.peek2() == '*':
			toks = append(toks, l.lexBlockComment())
		case isIdentStart(c):
			toks = append(toks, l.lexIdent())
		case isDigit(c) || (c == '.' && isDigit(l.peek2())):
			toks = append(toks, l.lexNumber())
		case c == '"':
			toks = append(toks, l.lexString())
		default:
			start, sp := l.offset, l.point
			l.advance()
			toks = append(toks, token{
				kind:  tokPunct,
				text:  string(c),
				start: l.baseByte + start,
				end:   l.baseByte + l.offset,
				sp:    sp,
				ep:    l.point,
			})
		}
	}
	return toks
}

func (l *lexer) lexLineComment() token {
	start, sp := l.offset, l.point
	for int(l.offset) < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
	return token{
		kind:  tokComment,
		text:  string(l.src[start:l.offset]),
		start: l.baseByte + start,
		end:   l.baseByte + l.offset,
		sp:    sp,
		ep:    l.point,
	}
}

func (l *lexer) lexBlockComment() token {
	start, sp := l.offset, l.point
	l.advance()
	l.advance()
	closed := false
	for int(l.offset) < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			closed = true
			break
		}
		l.advance()
	}
	if !closed {
		l.unterminated = true
	}
	return token{
		kind:  tokComment,
		text:  string(l.src[start:l.offset]),
		start: l.baseByte + start,
		end:   l.baseByte + l.offset,
		sp:    sp,
		ep:    l.point,
	}
}

func (l *lexer) lexIdent() token {
	start, sp := l.offset, l.point
	for int(l.offset) < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	return token{
		kind:  tokIdent,
		text:  string(l.src[start:l.offset]),
		start: l.baseByte + start,
		end:   l.baseByte + l.offset,
		sp:    sp,
		ep:    l.point,
	}
}

func (l *lexer) lexNumber() token {
	start, sp := l.offset, l.point
	for int(l.offset) < len(l.src) {
		c := l.peek()
		if isDigit(c) || c == '.' || c == 'e' || c == 'E' {
			l.advance()
			continue
		}
		if (c == '+' || c == '-') && l.offset > start {
			prev := l.src[l.offset-1]
			if prev == 'e' || prev == 'E' {
				l.advance()
				continue
			}
		}
		break
	}
	return token{
		kind:  tokNumber,
		text:  string(l.src[start:l.offset]),
		start: l.baseByte + start,
		end:   l.baseByte + l.offset,
		sp:    sp,
		ep:    l.point,
	}
}

func (l *lexer) lexString() token {
	start, sp := l.offset, l.point
	l.advance()
	closed := false
	for int(l.offset) < len(l.src) {
		c := l.advance()
		if c == '\\' && int(l.offset) < len(l.src) {
			l.advance()
			continue
		}
		if c == '"' {
			closed = true
			break
		}
	}
	if !closed {
		l.unterminated = true
	}
	return token{
		kind:  tokString,
		text:  string(l.src[start:l.offset]),
		start: l.baseByte + start,
		end:   l.baseByte + l.offset,
		sp:    sp,
		ep:    l.point,
	}
}
