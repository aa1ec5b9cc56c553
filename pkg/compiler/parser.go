package compiler

import (
	"fmt"
	"strconv"

	"github.com/mortie/gilia/pkg/lexer"
	"github.com/mortie/gilia/pkg/token"
)

// parser is a recursive-descent parser over a token stream that calls
// generator emit methods directly as it recognizes each construct —
// there is no intermediate AST.
type parser struct {
	lex      *lexer.Lexer
	gen      *generator
	file     string
	resolver Resolver
	dirStack []string
}

func (p *parser) errorAt(tok token.Token, format string, args ...any) error {
	return &ParseError{File: p.file, Line: tok.Line, Col: tok.Col, Msg: fmt.Sprintf(format, args...)}
}

func tokIsEnd(tok token.Token) bool {
	switch tok.Kind {
	case token.CloseBrace, token.CloseBracket, token.CloseParen, token.EOF, token.EOL:
		return true
	default:
		return false
	}
}

// isInfixToken reports whether tok names one of the infix selectors: the
// fixed operator set, or a `$something` named selector.
func isInfixToken(tok token.Token) bool {
	if tok.Kind != token.Ident {
		return false
	}
	if token.IsInfixSelector(tok.Text) {
		return true
	}
	return len(tok.Text) > 1 && tok.Text[0] == '$'
}

// parseStatements compiles a sequence of EOL-separated expressions,
// discarding each one's value, without emitting a trailing HALT — used
// both by the top-level Compile entry (which adds its own HALT after)
// and by a nested import's recursive parse (which must not terminate
// the enclosing program).
func (p *parser) parseStatements() error {
	for {
		p.lex.SkipOptional(token.EOL)
		if p.lex.Peek(1).Kind == token.EOF {
			return nil
		}

		if err := p.parseExpression(); err != nil {
			p.gen.emitHalt()
			return err
		}

		p.gen.emitDiscard()
	}
}

func (p *parser) parseExpression() error {
	tok := p.lex.Peek(1)
	tok2 := p.lex.Peek(2)

	switch {
	case tok.Kind == token.Ident && tok.Text == "import":
		return p.parseImport()

	case tok.Kind == token.Ident && tok2.Kind == token.Assign:
		ident := tok.Text
		p.lex.Next() // ident
		p.lex.Next() // :=
		if err := p.parseExpression(); err != nil {
			return err
		}
		p.gen.emitStackFrameSet(ident)
		return nil

	case tok.Kind == token.Ident && tok2.Kind == token.Equals:
		ident := tok.Text
		p.lex.Next() // ident
		p.lex.Next() // =
		if err := p.parseExpression(); err != nil {
			return err
		}
		p.gen.emitStackFrameReplace(ident)
		return nil

	default:
		if _, err := p.parseArgLevelExpression(); err != nil {
			return err
		}
		if !tokIsEnd(p.lex.Peek(1)) {
			return p.parseFuncCallAfterBase(0)
		}
		return nil
	}
}

func (p *parser) parseImport() error {
	p.lex.Next() // 'import'

	tok := p.lex.Peek(1)
	if tok.Kind != token.String {
		return p.errorAt(tok, "in import: expected string, got %s", tok.Kind)
	}
	path := tok.Text
	p.lex.Next()

	if p.gen.isKnownModule(path) {
		p.gen.emitModuleImport(path)
		return nil
	}

	return p.importFile(tok, path)
}

func (p *parser) parseArgLevelExpressionBase() error {
	tok := p.lex.Peek(1)

	switch {
	case tok.Kind == token.OpenParen:
		p.lex.Next()
		if err := p.parseExpression(); err != nil {
			return err
		}
		tok = p.lex.Peek(1)
		if tok.Kind != token.CloseParen {
			return p.errorAt(tok, "expected ')', got %s", tok.Kind)
		}
		p.lex.Next()

	case tok.Kind == token.Ident:
		ident := tok.Text
		p.lex.Next()
		if ident == "$" {
			p.gen.emitStackFrameGetArgs()
		} else {
			p.gen.emitStackFrameLookup(ident)
		}

	case tok.Kind == token.Number:
		n, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return p.errorAt(tok, "invalid number literal %q", tok.Text)
		}
		p.lex.Next()
		p.gen.emitNumber(n)

	case tok.Kind == token.String:
		p.lex.Next()
		p.gen.emitString(tok.Text)

	case tok.Kind == token.Atom:
		p.lex.Next()
		p.gen.emitAtom(tok.Text)

	case tok.Kind == token.OpenBrace:
		return p.parseObjectOrFunctionLiteral()

	case tok.Kind == token.OpenBracket:
		return p.parseArrayLiteral()

	default:
		return p.errorAt(tok, "unexpected token %s", tok.Kind)
	}

	return nil
}

// parseArgLevelExpression parses a base expression followed by zero or
// more postfix operations (field/array/dynamic access, parenthesized
// calls). It returns 1 if any postfix was applied, 0 otherwise — the
// signal parseFuncCallAfterBase's infix loop uses to tell "this was just
// another base expression" from "this was an operand of an in-progress
// infix chain".
func (p *parser) parseArgLevelExpression() (int, error) {
	if err := p.parseArgLevelExpressionBase(); err != nil {
		return 0, err
	}

	ret := 0
	for {
		tok := p.lex.Peek(1)
		tok2 := p.lex.Peek(2)
		tok3 := p.lex.Peek(3)

		switch {
		case tok.Kind == token.OpenParenNS:
			p.lex.Next()
			if p.lex.Peek(1).Kind == token.CloseParen {
				p.lex.Next()
				p.gen.emitFuncCall(0)
			} else {
				if err := p.parseFuncCallAfterBase(1); err != nil {
					return 0, err
				}
				tok = p.lex.Peek(1)
				if tok.Kind != token.CloseParen {
					return 0, p.errorAt(tok, "expected ')', got %s", tok.Kind)
				}
				p.lex.Next()
			}

		case tok.Kind == token.Period && tok2.Kind == token.Ident && tok3.Kind == token.Equals:
			ident := tok2.Text
			p.lex.Next() // '.'
			p.lex.Next() // ident
			p.lex.Next() // '='
			if err := p.parseExpression(); err != nil {
				return 0, err
			}
			p.gen.emitNamespaceSet(ident)
			p.gen.emitSwapDiscard()

		case tok.Kind == token.Period && tok2.Kind == token.Ident:
			ident := tok2.Text
			p.lex.Next() // '.'
			p.lex.Next() // ident
			p.gen.emitNamespaceLookup(ident)

		case tok.Kind == token.DotNumber && tok2.Kind == token.Equals:
			n, err := strconv.Atoi(tok.Text)
			if err != nil {
				return 0, p.errorAt(tok, "invalid positional index %q", tok.Text)
			}
			p.lex.Next() // .N
			p.lex.Next() // '='
			if err := p.parseExpression(); err != nil {
				return 0, err
			}
			p.gen.emitArraySet(n)
			p.gen.emitSwapDiscard()

		case tok.Kind == token.DotNumber:
			n, err := strconv.Atoi(tok.Text)
			if err != nil {
				return 0, p.errorAt(tok, "invalid positional index %q", tok.Text)
			}
			p.lex.Next()
			p.gen.emitArrayLookup(n)

		case tok.Kind == token.Period && tok2.Kind == token.OpenParenNS:
			p.lex.Next() // '.'
			p.lex.Next() // '('
			if err := p.parseExpression(); err != nil {
				return 0, err
			}
			tok = p.lex.Peek(1)
			if tok.Kind != token.CloseParen {
				return 0, p.errorAt(tok, "expected ')', got %s", tok.Kind)
			}
			p.lex.Next()

			if p.lex.Peek(1).Kind == token.Equals {
				p.lex.Next()
				if err := p.parseExpression(); err != nil {
					return 0, err
				}
				p.gen.emitDynamicSet()
			} else {
				p.gen.emitDynamicLookup()
			}

		default:
			return ret, nil
		}
		ret = 1
	}
}

// parseFuncCallAfterBase parses the argument list following a base
// expression, either a whitespace-separated statement-level call
// (infixStart 0) or a parenthesized one (infixStart 1: the callee was
// consumed before the '(', and an infix operator is only recognised
// after the first argument inside it — see the OpenParenNS branch above,
// which enters here only after confirming there's at least one
// argument).
func (p *parser) parseFuncCallAfterBase(infixStart int) error {
	argc := 0

	for {
		if argc >= infixStart && isInfixToken(p.lex.Peek(1)) {
			for {
				ret, err := p.parseArgLevelExpression() // the operator itself
				if err != nil {
					return err
				}
				if ret == 1 {
					// The "operator" token carried its own postfixes,
					// so it wasn't actually used as an infix operator:
					// treat it as an ordinary argument instead.
					argc++
					break
				}

				if _, err := p.parseArgLevelExpression(); err != nil { // rhs
					return err
				}
				p.gen.emitFuncCallInfix()

				if !isInfixToken(p.lex.Peek(1)) {
					break
				}
			}

			if argc == 0 {
				// The whole thing was an infix chain, not a call: the
				// base we started from was the chain's left operand,
				// not a function being invoked.
				return nil
			}
		} else {
			if _, err := p.parseArgLevelExpression(); err != nil {
				return err
			}
			argc++
		}

		if tokIsEnd(p.lex.Peek(1)) {
			break
		}
	}

	p.gen.emitFuncCall(argc)
	return nil
}

func (p *parser) parseObjectOrFunctionLiteral() error {
	p.lex.Next() // '{'
	p.lex.SkipOptional(token.EOL)

	tok := p.lex.Peek(1)
	tok2 := p.lex.Peek(2)

	switch {
	case tok.Kind == token.CloseBrace:
		p.lex.Next()
		p.gen.emitNamespace()
		return nil

	case tok.Kind == token.Ident && tok2.Kind == token.Colon:
		return p.parseObjectLiteral()

	default:
		return p.parseFunctionLiteral()
	}
}

func (p *parser) parseObjectLiteral() error {
	// '{' and the optional EOL after it were already consumed.
	p.gen.emitNamespace()

	for {
		tok := p.lex.Peek(1)
		if tok.Kind == token.CloseBrace {
			p.lex.Next()
			break
		}
		if tok.Kind != token.Ident {
			return p.errorAt(tok, "in object literal: expected identifier, got %s", tok.Kind)
		}
		key := tok.Text
		p.lex.Next()

		tok = p.lex.Peek(1)
		if tok.Kind != token.Colon {
			return p.errorAt(tok, "in object literal: expected ':', got %s", tok.Kind)
		}
		p.lex.Next()

		if err := p.parseExpression(); err != nil {
			return err
		}

		p.gen.emitNamespaceSet(key)
		p.gen.emitDiscard()

		tok = p.lex.Peek(1)
		if tok.Kind != token.EOL && tok.Kind != token.CloseBrace {
			return p.errorAt(tok, "in object literal: expected EOL or '}', got %s", tok.Kind)
		}
		if tok.Kind == token.EOL {
			p.lex.Next()
		}
	}

	return nil
}

func (p *parser) parseFunctionLiteral() error {
	// '{' and the optional EOL after it were already consumed.
	skip := p.gen.reserveJump()
	startPos := p.gen.pos()

	first := true
	for {
		if p.lex.Peek(1).Kind == token.CloseBrace {
			p.lex.Next()
			break
		}

		if !first {
			p.gen.emitDiscard()
		}

		if err := p.parseExpression(); err != nil {
			return err
		}

		p.lex.SkipOptional(token.EOL)
		first = false
	}

	if first {
		// An empty function body still has to leave something on the
		// stack.
		p.gen.emitNone()
	}

	p.gen.emitRet()
	p.gen.patchJumpHere(skip)
	p.gen.emitFunction(startPos)
	return nil
}

func (p *parser) parseArrayLiteral() error {
	p.lex.Next() // '['
	p.lex.SkipOptional(token.EOL)

	count := 0
	for {
		if p.lex.Peek(1).Kind == token.CloseBracket {
			p.lex.Next()
			break
		}

		count++
		if _, err := p.parseArgLevelExpression(); err != nil {
			return err
		}

		p.lex.SkipOptional(token.EOL)
	}

	p.gen.emitArray(count)
	return nil
}
