// Package lexer implements the lexical analyzer for gilia: a
// readByte/peekByte byte scanner driving a big switch over the current
// character, buffering tokens in a small ring so the parser can look
// up to three tokens ahead.
package lexer

import (
	"fmt"
	"strings"

	"github.com/mortie/gilia/internal/ioutil"
	"github.com/mortie/gilia/pkg/token"
)

const lookaheadSize = 4

// Lexer scans a byte stream into a stream of tokens with lookahead. A
// ring of 4 slots is kept; the parser peeks at most 3 tokens ahead.
type Lexer struct {
	r *ioutil.Reader

	toks   [lookaheadSize]token.Token
	filled int // number of valid entries at the front of toks
	line   int
	col    int

	parens     int  // open '(' depth; newlines are swallowed while > 0
	prevIsExpr bool // true if the previous emitted token can end an expression
}

// New returns a Lexer reading from r.
func New(r *ioutil.Reader) *Lexer {
	return &Lexer{r: r, line: 1, col: 0}
}

// Peek returns the token `count` positions ahead (count is 1 for the next
// token, 2 for the one after) without consuming it.
func (l *Lexer) Peek(count int) token.Token {
	for l.filled < count {
		tok := l.scan()
		l.toks[l.filled] = tok
		l.filled++
		// prevIsExpr tracks "does the token immediately preceding the
		// lexer's current scan position end an expression" — it must
		// advance as each token is *scanned*, not as it is consumed,
		// since OPEN_PAREN_NS detection depends on the token already
		// sitting in the lookahead buffer.
		l.prevIsExpr = tokenEndsExpr(tok)
	}
	return l.toks[count-1]
}

// Next consumes and returns the next token.
func (l *Lexer) Next() token.Token {
	tok := l.Peek(1)
	copy(l.toks[:], l.toks[1:])
	l.filled--
	return tok
}

// SkipOptional consumes the next token if it has kind k.
func (l *Lexer) SkipOptional(k token.Kind) {
	if l.Peek(1).Kind == k {
		l.Next()
	}
}

func tokenEndsExpr(tok token.Token) bool {
	switch tok.Kind {
	case token.Ident, token.Number, token.String, token.Atom,
		token.CloseParen, token.CloseBrace, token.CloseBracket, token.DotNumber,
		token.Period:
		// Period counts so that `.( expr )` (dynamic lookup) lexes its
		// '(' as OPEN_PAREN_NS the same way a call's does; a '.' followed
		// by whitespace then '(' is not valid syntax either way.
		return true
	default:
		return false
	}
}

func (l *Lexer) readByte() int {
	b := l.r.Get()
	if b == '\n' {
		l.line++
		l.col = 0
	} else if b >= 0 {
		l.col++
	}
	return b
}

func (l *Lexer) peekByte(n int) int {
	return l.r.Peek(n)
}

// scan produces exactly one token from the byte stream.
func (l *Lexer) scan() token.Token {
	spaceBefore := l.skipInsignificant()

	if tok, ok := l.scanEOLIfNewline(); ok {
		return tok
	}

	line, col := l.line, l.col+1
	b := l.peekByte(1)

	switch {
	case b < 0:
		return token.Token{Kind: token.EOF, Line: line, Col: col}

	case b == '(':
		// OPEN_PAREN_NS requires the '(' to immediately follow an
		// expression-ending token with no intervening whitespace: `f(1 2)`
		// is a call, `f (1 2)` is two statement-level arguments, the
		// first of which happens to be grouped.
		wasExpr := l.prevIsExpr && !spaceBefore
		l.readByte()
		kind := token.OpenParen
		if wasExpr {
			kind = token.OpenParenNS
		}
		l.parens++
		return token.Token{Kind: kind, Line: line, Col: col}

	case b == ')':
		l.readByte()
		if l.parens > 0 {
			l.parens--
		}
		return token.Token{Kind: token.CloseParen, Line: line, Col: col}

	case b == '{':
		l.readByte()
		return token.Token{Kind: token.OpenBrace, Line: line, Col: col}
	case b == '}':
		l.readByte()
		return token.Token{Kind: token.CloseBrace, Line: line, Col: col}
	case b == '[':
		l.readByte()
		return token.Token{Kind: token.OpenBracket, Line: line, Col: col}
	case b == ']':
		l.readByte()
		return token.Token{Kind: token.CloseBracket, Line: line, Col: col}

	case b == '\'':
		l.readByte()
		return token.Token{Kind: token.Atom, Text: l.readIdentText(), Line: line, Col: col}

	case b == ',':
		l.readByte()
		return token.Token{Kind: token.Comma, Line: line, Col: col}

	case b == ':':
		l.readByte()
		if l.peekByte(1) == '=' {
			l.readByte()
			return token.Token{Kind: token.Assign, Line: line, Col: col}
		}
		return token.Token{Kind: token.Colon, Line: line, Col: col}

	case b == '=':
		l.readByte()
		return token.Token{Kind: token.Equals, Line: line, Col: col}

	case b == '|':
		l.readByte()
		return token.Token{Kind: token.Pipe, Line: line, Col: col}

	case b == ';':
		l.consumeForcedEOL()
		return token.Token{Kind: token.EOL, Line: line, Col: col}

	case b == '.':
		return l.scanDot(line, col)

	case b == '"':
		return l.scanString(line, col)

	case isDigit(byte(b)):
		return l.scanNumber(line, col)

	default:
		return l.scanIdentLike(line, col)
	}
}

// skipInsignificant consumes spaces, tabs, CRs and line comments. A bare
// '\n' is left alone here: outside of parens it is significant (an EOL
// token, handled by scanEOLIfNewline); inside parens it is consumed by
// scanEOLIfNewline too, since both cases need the same "collapse runs of
// newlines/semicolons" behavior.
func (l *Lexer) skipInsignificant() (consumed bool) {
	for {
		b := l.peekByte(1)
		switch {
		case b == ' ' || b == '\t' || b == '\r':
			l.readByte()
			consumed = true
		case b == '#':
			for {
				c := l.peekByte(1)
				if c < 0 || c == '\n' {
					break
				}
				l.readByte()
			}
			consumed = true
		default:
			return consumed
		}
	}
}

// scanEOLIfNewline handles a pending '\n': inside parens it is swallowed
// silently, outside parens it becomes a single EOL token that also
// absorbs any further blank lines or ';' (forced-EOL collapsing).
func (l *Lexer) scanEOLIfNewline() (token.Token, bool) {
	if l.peekByte(1) != '\n' {
		return token.Token{}, false
	}
	if l.parens > 0 {
		l.readByte()
		l.skipInsignificant()
		return l.scanEOLIfNewlineLoop()
	}
	line, col := l.line, l.col+1
	l.consumeForcedEOL()
	return token.Token{Kind: token.EOL, Line: line, Col: col}, true
}

// scanEOLIfNewlineLoop re-enters the insignificant/newline skip after
// having swallowed one in-paren newline, since more may follow.
func (l *Lexer) scanEOLIfNewlineLoop() (token.Token, bool) {
	return l.scanEOLIfNewline()
}

func (l *Lexer) consumeForcedEOL() {
	for {
		l.skipInsignificant()
		b := l.peekByte(1)
		if b == '\n' || b == ';' {
			l.readByte()
			continue
		}
		return
	}
}

func (l *Lexer) scanDot(line, col int) token.Token {
	l.readByte() // consume '.'
	if isDigit(byte(l.peekByte(1))) {
		var sb strings.Builder
		for isDigit(byte(l.peekByte(1))) {
			sb.WriteByte(byte(l.readByte()))
		}
		return token.Token{Kind: token.DotNumber, Text: sb.String(), Line: line, Col: col}
	}
	return token.Token{Kind: token.Period, Line: line, Col: col}
}

func (l *Lexer) scanString(line, col int) token.Token {
	l.readByte() // opening quote
	var sb strings.Builder
	for {
		b := l.peekByte(1)
		if b < 0 {
			return token.Token{Kind: token.Illegal, Text: "unterminated string literal", Line: line, Col: col}
		}
		if b == '"' {
			l.readByte()
			break
		}
		if b == '\\' {
			l.readByte()
			esc := l.readByte()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case -1:
				return token.Token{Kind: token.Illegal, Text: "unterminated string literal", Line: line, Col: col}
			default:
				sb.WriteByte(byte(esc))
			}
			continue
		}
		sb.WriteByte(byte(l.readByte()))
	}
	return token.Token{Kind: token.String, Text: sb.String(), Line: line, Col: col}
}

func (l *Lexer) scanNumber(line, col int) token.Token {
	var sb strings.Builder
	for isDigit(byte(l.peekByte(1))) {
		sb.WriteByte(byte(l.readByte()))
	}
	if l.peekByte(1) == '.' && isDigit(byte(l.peekByte(2))) {
		sb.WriteByte(byte(l.readByte()))
		for isDigit(byte(l.peekByte(1))) {
			sb.WriteByte(byte(l.readByte()))
		}
	}
	return token.Token{Kind: token.Number, Text: sb.String(), Line: line, Col: col}
}

// scanIdentLike reads a greedy run of non-whitespace, non-structural
// bytes, then, if the run parses as a non-negative decimal number,
// re-emits it as a Number token.
func (l *Lexer) scanIdentLike(line, col int) token.Token {
	text := l.readIdentText()
	if text == "" {
		b := l.readByte()
		return token.Token{Kind: token.Illegal, Text: fmt.Sprintf("unexpected byte %q", rune(b)), Line: line, Col: col}
	}
	if isAllDigits(text) {
		return token.Token{Kind: token.Number, Text: text, Line: line, Col: col}
	}
	return token.Token{Kind: token.Ident, Text: text, Line: line, Col: col}
}

func (l *Lexer) readIdentText() string {
	var sb strings.Builder
	for {
		b := l.peekByte(1)
		if b < 0 || isStructural(byte(b)) || isSpace(byte(b)) {
			break
		}
		sb.WriteByte(byte(l.readByte()))
	}
	return sb.String()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }
func isStructural(b byte) bool {
	switch b {
	case '(', ')', '{', '}', '[', ']', '\'', ',', '.', ':', '=', '|', ';', '"', '#':
		return true
	default:
		return false
	}
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
