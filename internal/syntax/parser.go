package syntax

import "fmt"

// ParseError is a syntax error at a byte offset of the input.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// Parser is a recursive-descent parser over one input string.
type Parser struct {
	lexer   *Lexer
	current Token
	peek    Token
	errors  []error
}

// NewParser returns a parser positioned at the first token of input.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input)}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) currentTokenIs(tt TokenType) bool { return p.current.Type == tt }

func (p *Parser) peekTokenIs(tt TokenType) bool { return p.peek.Type == tt }

// expect consumes the current token if it has type tt.
func (p *Parser) expect(tt TokenType) bool {
	if p.currentTokenIs(tt) {
		p.nextToken()
		return true
	}
	p.addError(p.current.Offset, fmt.Sprintf("expected %s, got %s", tt, p.describe(p.current)))
	return false
}

func (p *Parser) describe(t Token) string {
	if t.Literal != "" && t.Type != TokenEOF {
		return fmt.Sprintf("`%s`", t.Literal)
	}
	return t.Type.String()
}

func (p *Parser) addError(offset int, message string) {
	p.errors = append(p.errors, &ParseError{Offset: offset, Message: message})
}

func (p *Parser) failed() bool { return len(p.errors) > 0 }

// finish reports the first error, or an error if input remains.
func (p *Parser) finish() error {
	if !p.failed() && !p.currentTokenIs(TokenEOF) {
		p.addError(p.current.Offset, fmt.Sprintf("unexpected %s", p.describe(p.current)))
	}
	if p.failed() {
		return p.errors[0]
	}
	return nil
}

// ParseType parses a complete type.
func ParseType(src string) (*Type, error) {
	p := NewParser(src)
	t := p.parseType()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseWherePredicate parses one where-clause predicate.
func ParseWherePredicate(src string) (*WherePredicate, error) {
	p := NewParser(src)
	w := p.parseWherePredicate()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return w, nil
}

// ParseParam parses one generic parameter declaration.
func ParseParam(src string) (*Param, error) {
	p := NewParser(src)
	prm := p.parseParam()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return prm, nil
}

// ParseBounds parses a `+`-separated bound list.
func ParseBounds(src string) ([]*Bound, error) {
	p := NewParser(src)
	b := p.parseBounds()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseConst parses a constant expression.
func ParseConst(src string) (*ConstExpr, error) {
	p := NewParser(src)
	c := p.parseConst()
	if err := p.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseImplHeader parses the header of an impl.
func ParseImplHeader(src string) (*ImplHeader, error) {
	p := NewParser(src)
	h := &ImplHeader{BangOffset: -1}
	if p.currentTokenIs(TokenBang) {
		h.Negative = true
		h.BangOffset = p.current.Offset
		p.nextToken()
		h.Trait = p.parsePath()
		p.expect(TokenFor)
		h.SelfTy = p.parseType()
	} else {
		t := p.parseType()
		if p.currentTokenIs(TokenFor) && t != nil && t.Kind == TPath {
			p.nextToken()
			h.Trait = t.Path
			h.SelfTy = p.parseType()
		} else {
			h.SelfTy = t
		}
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return h, nil
}

func (p *Parser) parseType() *Type {
	if p.failed() {
		return nil
	}
	start := p.current.Offset
	switch p.current.Type {
	case TokenAmp:
		p.nextToken()
		t := &Type{Kind: TRef, Offset: start}
		if p.currentTokenIs(TokenLifetime) {
			t.Lifetime = p.current.Literal
			p.nextToken()
		}
		if p.currentTokenIs(TokenMut) {
			t.Mut = true
			p.nextToken()
		}
		t.Elem = p.parseType()
		return p.close(t)
	case TokenStar:
		p.nextToken()
		t := &Type{Kind: TPtr, Offset: start}
		switch p.current.Type {
		case TokenMut:
			t.Mut = true
		case TokenConst:
		default:
			p.addError(p.current.Offset, "expected `mut` or `const` after `*`")
			return nil
		}
		p.nextToken()
		t.Elem = p.parseType()
		return p.close(t)
	case TokenLBracket:
		p.nextToken()
		elem := p.parseType()
		t := &Type{Kind: TSlice, Offset: start, Elem: elem}
		if p.currentTokenIs(TokenSemicolon) {
			p.nextToken()
			t.Kind = TArray
			t.Len = p.parseConst()
		}
		p.expect(TokenRBracket)
		return p.close(t)
	case TokenLParen:
		p.nextToken()
		t := &Type{Kind: TTuple, Offset: start}
		trailingComma := false
		for !p.currentTokenIs(TokenRParen) && !p.failed() {
			t.Elems = append(t.Elems, p.parseType())
			trailingComma = false
			if !p.currentTokenIs(TokenComma) {
				break
			}
			trailingComma = true
			p.nextToken()
		}
		p.expect(TokenRParen)
		if len(t.Elems) == 1 && !trailingComma {
			inner := t.Elems[0]
			return inner
		}
		return p.close(t)
	case TokenFn:
		p.nextToken()
		t := &Type{Kind: TFn, Offset: start}
		p.expect(TokenLParen)
		for !p.currentTokenIs(TokenRParen) && !p.failed() {
			t.Elems = append(t.Elems, p.parseType())
			if !p.currentTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(TokenRParen)
		if p.currentTokenIs(TokenArrow) {
			p.nextToken()
			t.Output = p.parseType()
		}
		return p.close(t)
	case TokenDyn:
		p.nextToken()
		t := &Type{Kind: TDyn, Offset: start}
		t.Path = p.parsePath()
		if p.currentTokenIs(TokenPlus) && p.peekTokenIs(TokenLifetime) {
			p.nextToken()
			t.Lifetime = p.current.Literal
			p.nextToken()
		}
		return p.close(t)
	case TokenLt:
		p.nextToken()
		t := &Type{Kind: TQualified, Offset: start}
		t.QSelf = p.parseType()
		p.expect(TokenAs)
		t.Path = p.parsePath()
		p.expect(TokenGt)
		p.expect(TokenPathSep)
		t.Assoc = p.parseSegment()
		return p.close(t)
	case TokenBang:
		p.nextToken()
		return p.close(&Type{Kind: TNever, Offset: start})
	case TokenIdent:
		path := p.parsePath()
		return p.close(&Type{Kind: TPath, Offset: start, Path: path})
	}
	p.addError(p.current.Offset, fmt.Sprintf("expected type, got %s", p.describe(p.current)))
	return nil
}

// close records the end offset of t from the last consumed token.
func (p *Parser) close(t *Type) *Type {
	if p.failed() {
		return nil
	}
	t.End = p.lastEnd()
	return t
}

func (p *Parser) lastEnd() int {
	// The current token starts after the last consumed one; trim the
	// whitespace in between.
	end := p.current.Offset
	for end > 0 && isSpace(p.lexer.input[end-1]) {
		end--
	}
	return end
}

func isSpace(ch byte) bool { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }

func (p *Parser) parsePath() *Path {
	if p.failed() {
		return nil
	}
	path := &Path{Offset: p.current.Offset}
	for {
		seg := p.parseSegment()
		if seg == nil {
			return nil
		}
		path.Segments = append(path.Segments, seg)
		if !p.currentTokenIs(TokenPathSep) {
			break
		}
		p.nextToken()
	}
	path.End = p.lastEnd()
	return path
}

func (p *Parser) parseSegment() *Segment {
	if !p.currentTokenIs(TokenIdent) {
		p.addError(p.current.Offset, fmt.Sprintf("expected identifier, got %s", p.describe(p.current)))
		return nil
	}
	seg := &Segment{Name: p.current.Literal, Offset: p.current.Offset}
	p.nextToken()
	if p.currentTokenIs(TokenLt) {
		p.nextToken()
		for !p.currentTokenIs(TokenGt) && !p.failed() {
			if p.currentTokenIs(TokenIdent) && (p.peekTokenIs(TokenAssign) || p.peekTokenIs(TokenLt) && p.isBindingWithArgs()) {
				seg.Bindings = append(seg.Bindings, p.parseBinding())
			} else {
				seg.Args = append(seg.Args, p.parseGenericArg())
			}
			if !p.currentTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(TokenGt)
	}
	seg.End = p.lastEnd()
	return seg
}

// isBindingWithArgs looks ahead for `Name<...> =`.
func (p *Parser) isBindingWithArgs() bool {
	save := *p.lexer
	cur, peek := p.current, p.peek
	defer func() {
		*p.lexer = save
		p.current, p.peek = cur, peek
	}()
	p.nextToken() // at `<`
	depth := 0
	for !p.currentTokenIs(TokenEOF) {
		switch p.current.Type {
		case TokenLt:
			depth++
		case TokenGt:
			depth--
			if depth == 0 {
				return p.peekTokenIs(TokenAssign)
			}
		}
		p.nextToken()
	}
	return false
}

func (p *Parser) parseBinding() *Binding {
	b := &Binding{Name: p.current.Literal, Offset: p.current.Offset}
	p.nextToken()
	if p.currentTokenIs(TokenLt) {
		p.nextToken()
		for !p.currentTokenIs(TokenGt) && !p.failed() {
			b.Args = append(b.Args, p.parseGenericArg())
			if !p.currentTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(TokenGt)
	}
	p.expect(TokenAssign)
	b.Type = p.parseType()
	b.End = p.lastEnd()
	return b
}

func (p *Parser) parseGenericArg() *GenericArg {
	start := p.current.Offset
	arg := &GenericArg{Offset: start}
	switch {
	case p.currentTokenIs(TokenLifetime):
		arg.Lifetime = p.current.Literal
		p.nextToken()
	case p.currentTokenIs(TokenInt), p.currentTokenIs(TokenBlock),
		p.currentTokenIs(TokenIdent) && (p.current.Literal == "true" || p.current.Literal == "false"):
		arg.Const = p.parseConst()
	default:
		arg.Type = p.parseType()
	}
	arg.End = p.lastEnd()
	return arg
}

func (p *Parser) parseConst() *ConstExpr {
	if p.failed() {
		return nil
	}
	c := &ConstExpr{Text: p.current.Literal, Offset: p.current.Offset, End: p.current.End}
	switch p.current.Type {
	case TokenBlock:
		c.Block = true
		inner := c.Text[1 : len(c.Text)-1]
		for len(inner) > 0 && isSpace(inner[0]) {
			inner = inner[1:]
		}
		for len(inner) > 0 && isSpace(inner[len(inner)-1]) {
			inner = inner[:len(inner)-1]
		}
		c.Text = inner
	case TokenInt, TokenIdent:
	default:
		p.addError(p.current.Offset, fmt.Sprintf("expected constant, got %s", p.describe(p.current)))
		return nil
	}
	p.nextToken()
	return c
}

func (p *Parser) parseBounds() []*Bound {
	var out []*Bound
	for !p.failed() {
		b := &Bound{Offset: p.current.Offset}
		switch p.current.Type {
		case TokenLifetime:
			b.Lifetime = p.current.Literal
			p.nextToken()
		case TokenQuestion:
			b.Maybe = true
			p.nextToken()
			b.Trait = p.parsePath()
		default:
			b.Trait = p.parsePath()
		}
		b.End = p.lastEnd()
		out = append(out, b)
		if !p.currentTokenIs(TokenPlus) {
			break
		}
		p.nextToken()
	}
	return out
}

func (p *Parser) parseWherePredicate() *WherePredicate {
	w := &WherePredicate{Offset: p.current.Offset}
	if p.currentTokenIs(TokenLifetime) {
		w.Lifetime = p.current.Literal
		p.nextToken()
		p.expect(TokenColon)
		for !p.failed() {
			if !p.currentTokenIs(TokenLifetime) {
				p.addError(p.current.Offset, fmt.Sprintf("expected lifetime, got %s", p.describe(p.current)))
				break
			}
			w.Bounds = append(w.Bounds, &Bound{Lifetime: p.current.Literal, Offset: p.current.Offset, End: p.current.End})
			p.nextToken()
			if !p.currentTokenIs(TokenPlus) {
				break
			}
			p.nextToken()
		}
	} else {
		w.Bounded = p.parseType()
		p.expect(TokenColon)
		w.Bounds = p.parseBounds()
	}
	w.End = p.lastEnd()
	return w
}

func (p *Parser) parseParam() *Param {
	prm := &Param{Offset: p.current.Offset}
	switch p.current.Type {
	case TokenLifetime:
		prm.Kind = ParamLifetime
		prm.Name = p.current.Literal
		p.nextToken()
		if p.currentTokenIs(TokenColon) {
			p.nextToken()
			prm.Bounds = p.parseBounds()
		}
	case TokenConst:
		prm.Kind = ParamConst
		p.nextToken()
		if !p.currentTokenIs(TokenIdent) {
			p.addError(p.current.Offset, "expected const parameter name")
			return nil
		}
		prm.Name = p.current.Literal
		p.nextToken()
		p.expect(TokenColon)
		prm.ConstTy = p.parseType()
		if p.currentTokenIs(TokenAssign) {
			p.nextToken()
			prm.ConstDefault = p.parseConst()
		}
	case TokenIdent:
		prm.Kind = ParamType
		prm.Name = p.current.Literal
		p.nextToken()
		if p.currentTokenIs(TokenColon) {
			p.nextToken()
			prm.Bounds = p.parseBounds()
		}
		if p.currentTokenIs(TokenAssign) {
			p.nextToken()
			prm.Default = p.parseType()
		}
	default:
		p.addError(p.current.Offset, fmt.Sprintf("expected generic parameter, got %s", p.describe(p.current)))
		return nil
	}
	prm.End = p.lastEnd()
	return prm
}
