// Package syntax parses the surface notation declaration files use for
// types, bounds, where-clause predicates, generic parameters and impl
// headers: `&'a mut T`, `<T as Iterator>::Item`, `Self::Item<'a>`,
// `T: 'a + Clone`, `const N: usize = 3`, `!Send for Foo<T>`.
//
// The package is purely syntactic. Name resolution happens in the loader.
package syntax

import "fmt"

// TokenType identifies the kind of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenError
	TokenIdent
	TokenLifetime
	TokenInt
	TokenBlock // `{ ... }`, kept verbatim

	TokenAmp
	TokenStar
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
	TokenLt
	TokenGt
	TokenComma
	TokenSemicolon
	TokenColon
	TokenPathSep
	TokenAssign
	TokenPlus
	TokenQuestion
	TokenBang
	TokenArrow

	TokenMut
	TokenConst
	TokenDyn
	TokenFn
	TokenAs
	TokenFor
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "end of input",
	TokenError:     "invalid character",
	TokenIdent:     "identifier",
	TokenLifetime:  "lifetime",
	TokenInt:       "integer",
	TokenBlock:     "block",
	TokenAmp:       "`&`",
	TokenStar:      "`*`",
	TokenLBracket:  "`[`",
	TokenRBracket:  "`]`",
	TokenLParen:    "`(`",
	TokenRParen:    "`)`",
	TokenLt:        "`<`",
	TokenGt:        "`>`",
	TokenComma:     "`,`",
	TokenSemicolon: "`;`",
	TokenColon:     "`:`",
	TokenPathSep:   "`::`",
	TokenAssign:    "`=`",
	TokenPlus:      "`+`",
	TokenQuestion:  "`?`",
	TokenBang:      "`!`",
	TokenArrow:     "`->`",
	TokenMut:       "`mut`",
	TokenConst:     "`const`",
	TokenDyn:       "`dyn`",
	TokenFn:        "`fn`",
	TokenAs:        "`as`",
	TokenFor:       "`for`",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

var keywords = map[string]TokenType{
	"mut":   TokenMut,
	"const": TokenConst,
	"dyn":   TokenDyn,
	"fn":    TokenFn,
	"as":    TokenAs,
	"for":   TokenFor,
}

// Token is one lexical unit. Offset and End are byte offsets into the
// input.
type Token struct {
	Type    TokenType
	Literal string
	Offset  int
	End     int
}

// Lexer splits an input string into tokens.
type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentStart(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) || l.ch == '_' || isIdentStart(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readBlock consumes a balanced `{ ... }` group.
func (l *Lexer) readBlock() (string, bool) {
	start := l.position
	depth := 0
	for {
		switch l.ch {
		case 0:
			return l.input[start:l.position], false
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.readChar()
				return l.input[start:l.position], true
			}
		}
		l.readChar()
	}
}

// NextToken returns the next token of the input.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	start := l.position

	single := func(tt TokenType) Token {
		l.readChar()
		return Token{Type: tt, Literal: l.input[start:l.position], Offset: start, End: l.position}
	}

	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Offset: len(l.input), End: len(l.input)}
	case '&':
		return single(TokenAmp)
	case '*':
		return single(TokenStar)
	case '[':
		return single(TokenLBracket)
	case ']':
		return single(TokenRBracket)
	case '(':
		return single(TokenLParen)
	case ')':
		return single(TokenRParen)
	case '<':
		return single(TokenLt)
	case '>':
		return single(TokenGt)
	case ',':
		return single(TokenComma)
	case ';':
		return single(TokenSemicolon)
	case '=':
		return single(TokenAssign)
	case '+':
		return single(TokenPlus)
	case '?':
		return single(TokenQuestion)
	case '!':
		return single(TokenBang)
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			return single(TokenPathSep)
		}
		return single(TokenColon)
	case '-':
		if l.peekChar() == '>' {
			l.readChar()
			return single(TokenArrow)
		}
		if isDigit(l.peekChar()) {
			l.readChar()
			l.readNumber()
			return Token{Type: TokenInt, Literal: l.input[start:l.position], Offset: start, End: l.position}
		}
	case '{':
		text, ok := l.readBlock()
		if !ok {
			return Token{Type: TokenError, Literal: text, Offset: start, End: l.position}
		}
		return Token{Type: TokenBlock, Literal: text, Offset: start, End: l.position}
	case '\'':
		l.readChar()
		if !isIdentStart(l.ch) {
			return Token{Type: TokenError, Literal: "'", Offset: start, End: l.position}
		}
		l.readIdentifier()
		return Token{Type: TokenLifetime, Literal: l.input[start:l.position], Offset: start, End: l.position}
	}

	if isIdentStart(l.ch) {
		ident := l.readIdentifier()
		tt := TokenIdent
		if kw, ok := keywords[ident]; ok {
			tt = kw
		}
		return Token{Type: tt, Literal: ident, Offset: start, End: l.position}
	}
	if isDigit(l.ch) {
		lit := l.readNumber()
		return Token{Type: TokenInt, Literal: lit, Offset: start, End: l.position}
	}
	return single(TokenError)
}
