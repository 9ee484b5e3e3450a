package parser

import (
	"strconv"
	"strings"

	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/token"
)

// parseExpr implements Pratt/precedence-climbing expression parsing: parse
// one unary/postfix operand, then repeatedly fold in infix operators whose
// precedence is at least minPrec. When minPrec is weak enough to admit
// assignment, the first operand is additionally checked for a following
// assignment operator so `target = expr` can be recognized without
// backtracking: assignment is not a binary operator in the precedence
// table (its right-hand side must re-enter at precAssignment, not climb
// from precOr, and its target must later be validated as an lvalue), so it
// is handled as the one special case at the bottom of the ladder.
func (p *Parser) parseExpr(minPrec precedence) ast.NodeID {
	left := p.parseUnary()
	if minPrec <= precAssignment && isAssignOp(p.cur.Kind) {
		op := p.cur.Kind
		start := p.set(left).Span
		p.advance()
		value := p.parseExpr(precAssignment)
		node := p.node(ast.AssignExpr, start.Merge(p.set(value).Span))
		if node != ast.Invalid {
			p.set(node).Op = op
		}
		p.appendChild(node, left)
		p.appendChild(node, value)
		return node
	}
	return p.foldBinary(left, minPrec)
}

// parseExprAtPrec parses a fresh unary/postfix operand and folds in
// operators at or above minPrec; used for the right-hand side of an
// already-recognized binary operator, where assignment is never valid.
func (p *Parser) parseExprAtPrec(minPrec precedence) ast.NodeID {
	return p.foldBinary(p.parseUnary(), minPrec)
}

// foldBinary repeatedly folds left-associative binary operators at or
// above minPrec onto an already-parsed left operand.
func (p *Parser) foldBinary(left ast.NodeID, minPrec precedence) ast.NodeID {
	for {
		opPrec, ok := binaryPrec[p.cur.Kind]
		if !ok || opPrec < minPrec {
			break
		}
		op := p.cur.Kind
		start := p.set(left).Span
		p.advance()
		// Every ARNm binary operator, including send, is left-associative,
		// so the recursive call asks for strictly higher precedence.
		right := p.parseExprAtPrec(opPrec + 1)
		kind := ast.BinaryExpr
		if op == token.BANG {
			kind = ast.SendExpr
		}
		node := p.node(kind, start.Merge(p.set(right).Span))
		if node != ast.Invalid {
			p.set(node).Op = op
		}
		p.appendChild(node, left)
		p.appendChild(node, right)
		left = node
	}
	return left
}

// parseUnary parses `(-|!|~) unary | call`.
func (p *Parser) parseUnary() ast.NodeID {
	switch p.cur.Kind {
	case token.MINUS, token.BANG, token.TILDE:
		start := p.cur.Span
		op := p.cur.Kind
		p.advance()
		operand := p.parseUnary()
		node := p.node(ast.UnaryExpr, start.Merge(p.set(operand).Span))
		if node != ast.Invalid {
			p.set(node).Op = op
		}
		p.appendChild(node, operand)
		return node
	default:
		return p.parseCall()
	}
}

// parseCall parses a primary expression followed by any chain of
// `(args)`, `[index]` and `.field` postfix operators.
func (p *Parser) parseCall() ast.NodeID {
	expr := p.parsePrimary()
	for {
		switch p.cur.Kind {
		case token.LPAREN:
			expr = p.finishCall(expr)
		case token.LBRACKET:
			start := p.set(expr).Span
			p.advance()
			idx := p.parseExpr(precAssignment)
			p.expect(token.RBRACKET, "']'")
			node := p.node(ast.IndexExpr, start.Merge(p.prev.Span))
			p.appendChild(node, expr)
			p.appendChild(node, idx)
			expr = node
		case token.DOT:
			start := p.set(expr).Span
			p.advance()
			name := p.parseIdentName()
			node := p.node(ast.FieldExpr, start.Merge(p.prev.Span))
			if node != ast.Invalid {
				p.set(node).Name = name
			}
			p.appendChild(node, expr)
			expr = node
		default:
			return expr
		}
	}
}

func (p *Parser) finishCall(callee ast.NodeID) ast.NodeID {
	start := p.set(callee).Span
	p.advance() // '('
	node := p.node(ast.CallExpr, start)
	p.appendChild(node, callee)
	if !p.check(token.RPAREN) {
		count := 0
		for {
			if count >= MaxArgsPerCall {
				p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d call arguments", MaxArgsPerCall)
				break
			}
			arg := p.parseExpr(precAssignment)
			p.appendChild(node, arg)
			count++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN, "')'")
	if node != ast.Invalid {
		p.set(node).Span = start.Merge(p.prev.Span)
	}
	return node
}

// parsePrimary parses literals, identifiers, `self`, and parenthesized
// expressions.
func (p *Parser) parsePrimary() ast.NodeID {
	start := p.cur.Span
	switch p.cur.Kind {
	case token.INT:
		v := parseIntLiteral(p.cur.Lexeme)
		n := p.node(ast.IntLit, start)
		if n != ast.Invalid {
			p.set(n).IntVal = v
		}
		p.advance()
		return n
	case token.FLOAT:
		v, _ := strconv.ParseFloat(p.cur.Lexeme, 64)
		n := p.node(ast.FloatLit, start)
		if n != ast.Invalid {
			p.set(n).FloatVal = v
		}
		p.advance()
		return n
	case token.STRING:
		n := p.node(ast.StringLit, start)
		if n != ast.Invalid {
			p.set(n).StrVal = decodeEscapes(trimQuotes(p.cur.Lexeme))
		}
		p.advance()
		return n
	case token.CHAR:
		n := p.node(ast.CharLit, start)
		if n != ast.Invalid {
			p.set(n).StrVal = decodeEscapes(trimQuotes(p.cur.Lexeme))
		}
		p.advance()
		return n
	case token.TRUE, token.FALSE:
		n := p.node(ast.BoolLit, start)
		if n != ast.Invalid {
			p.set(n).BoolVal = p.cur.Kind == token.TRUE
		}
		p.advance()
		return n
	case token.SELF:
		p.advance()
		return p.node(ast.SelfExpr, start)
	case token.SPAWN:
		p.advance()
		call := p.parseCall()
		node := p.node(ast.SpawnStmt, start.Merge(p.set(call).Span))
		p.appendChild(node, call)
		return node
	case token.IDENT:
		name := p.cur.Lexeme
		p.advance()
		n := p.node(ast.IdentExpr, start.Merge(p.prev.Span))
		if n != ast.Invalid {
			p.set(n).Name = name
		}
		return n
	case token.LPAREN:
		p.advance()
		e := p.parseExpr(precAssignment)
		p.expect(token.RPAREN, "')'")
		return e
	default:
		p.errorf(diag.ExpectedExpr, p.cur.Span, "expected expression, got %s", p.cur.Kind)
		return ast.Invalid
	}
}

// -----------------------------
// ----- literal decoding ------
// -----------------------------

func parseIntLiteral(lex string) int64 {
	base := 10
	s := lex
	switch {
	case strings.HasPrefix(lex, "0x") || strings.HasPrefix(lex, "0X"):
		base, s = 16, lex[2:]
	case strings.HasPrefix(lex, "0b") || strings.HasPrefix(lex, "0B"):
		base, s = 2, lex[2:]
	case strings.HasPrefix(lex, "0o") || strings.HasPrefix(lex, "0O"):
		base, s = 8, lex[2:]
	}
	v, _ := strconv.ParseInt(s, base, 64)
	return v
}

func trimQuotes(lex string) string {
	if len(lex) >= 2 {
		return lex[1 : len(lex)-1]
	}
	return lex
}

// decodeEscapes interprets the small backslash-escape set ARNm string and
// char literals support. Unknown escapes pass the escaped character
// through literally, matching the lexer's "consumes both bytes without
// interpretation" scanning contract (decoding is sema/codegen's job, not
// the lexer's).
func decodeEscapes(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			case '\\', '\'', '"':
				b.WriteByte(s[i])
			default:
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
