// Package parser implements ARNm's recursive-descent parser: top-level
// declarations and statements are parsed by dedicated recursive-descent
// methods, expressions by Pratt/precedence-climbing — a hand-written
// descent parser rather than a generated LALR table, keeping a
// panic-mode error recovery philosophy: after the first mismatch in a
// window, further errors are suppressed until a synchronization point.
package parser

import (
	"github.com/arnm-lang/arnm/internal/ast"
	"github.com/arnm-lang/arnm/internal/diag"
	"github.com/arnm-lang/arnm/internal/lexer"
	"github.com/arnm-lang/arnm/internal/token"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Parser holds all the state needed to turn a token stream into an AST.
type Parser struct {
	lex  *lexer.Lexer
	sink *diag.Sink
	tree *ast.Arena

	cur  token.Token
	prev token.Token

	panicMode  bool
	topLevel   int
	memoryErr  bool
}

// Result is the output of a successful or partially-successful Parse call.
type Result struct {
	Arena *ast.Arena
	Root  ast.NodeID
	Sink  *diag.Sink
}

// ---------------------
// ----- functions -----
// ---------------------

// Parse scans and parses src, returning the AST arena, the program's root
// NodeID, and the diagnostic sink. Parse never panics on malformed input:
// every recoverable error is reported through sink and parsing continues
// from the next synchronization point.
func Parse(src string) Result {
	p := &Parser{
		lex:  lexer.New(src),
		sink: diag.NewSink(MaxDiagnostics),
		tree: ast.NewArena(ast.DefaultMaxNodes),
	}
	p.advance()
	root := p.parseProgram()
	return Result{Arena: p.tree, Root: root, Sink: p.sink}
}

// HadError reports whether any error-severity diagnostic was recorded.
func (r Result) HadError() bool { return r.Sink.HadError() }

// --------------------------
// ----- token plumbing -----
// --------------------------

func (p *Parser) advance() {
	p.prev = p.cur
	p.cur = p.lex.Next()
}

func (p *Parser) check(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it has Kind k, else reports
// UnexpectedToken (suppressed while already in panic mode) and returns
// false without consuming anything, so callers can still attempt recovery.
func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.check(k) {
		t := p.cur
		p.advance()
		return t, true
	}
	p.errorf(diag.UnexpectedToken, p.cur.Span, "expected %s, got %s", what, p.cur.Kind)
	return token.Token{}, false
}

// errorf reports a diagnostic unless the parser is already in panic mode,
// implementing "further errors in the same recovery window are
// suppressed".
func (p *Parser) errorf(code diag.Code, span token.Span, format string, args ...interface{}) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.sink.Errorf(code, span, format, args...)
}

// isSyncPoint reports whether the current token opens a fresh top-level or
// statement-level construct, per the spec's recovery boundary set.
func (p *Parser) isSyncPoint() bool {
	switch p.cur.Kind {
	case token.FN, token.ACTOR, token.STRUCT, token.LET, token.IF, token.WHILE,
		token.FOR, token.RETURN, token.SPAWN, token.RECEIVE, token.EOF:
		return true
	default:
		return false
	}
}

// synchronize advances past tokens until a semicolon (consumed) or a
// synchronization-point token (not consumed) is reached, then clears
// panicMode so subsequent errors are reported again.
func (p *Parser) synchronize() {
	for !p.check(token.EOF) {
		if p.prev.Kind == token.SEMI {
			break
		}
		if p.isSyncPoint() {
			break
		}
		p.advance()
	}
	p.panicMode = false
}

// node allocates an AST node, tracking arena exhaustion as a Memory
// diagnostic exactly once.
func (p *Parser) node(k ast.Kind, span token.Span) ast.NodeID {
	id := p.tree.New(k, span)
	if id == ast.Invalid && !p.memoryErr {
		p.memoryErr = true
		p.sink.Errorf(diag.OutOfArena, span, "AST arena exhausted")
	}
	return id
}

func (p *Parser) set(id ast.NodeID) *ast.Node {
	return p.tree.Get(id)
}

// ---------------------------
// ----- top level rules -----
// ---------------------------

// parseProgram parses a sequence of top-level fn/actor/struct declarations.
func (p *Parser) parseProgram() ast.NodeID {
	start := p.cur.Span
	prog := p.node(ast.Program, start)
	for !p.check(token.EOF) {
		if p.topLevel >= MaxTopLevelDecls {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d top-level declarations", MaxTopLevelDecls)
			p.synchronize()
			continue
		}
		decl := p.parseTopLevelDecl()
		if decl != ast.Invalid {
			p.appendChild(prog, decl)
			p.topLevel++
		}
		if p.panicMode {
			p.synchronize()
		}
	}
	if prog != ast.Invalid {
		p.set(prog).Span = start.Merge(p.prev.Span)
	}
	return prog
}

func (p *Parser) appendChild(parent, child ast.NodeID) {
	if parent == ast.Invalid || child == ast.Invalid {
		return
	}
	n := p.set(parent)
	n.Children = append(n.Children, child)
}

func (p *Parser) parseTopLevelDecl() ast.NodeID {
	switch p.cur.Kind {
	case token.FN:
		return p.parseFn()
	case token.ACTOR:
		return p.parseActor()
	case token.STRUCT:
		return p.parseStruct()
	default:
		p.errorf(diag.UnexpectedToken, p.cur.Span, "expected fn, actor or struct, got %s", p.cur.Kind)
		p.advance()
		return ast.Invalid
	}
}

// parseFn parses `fn NAME ( params ) [-> type] { stmts }`.
func (p *Parser) parseFn() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'fn'
	name := p.parseIdentName()
	fn := p.node(ast.FnDecl, start)
	if fn != ast.Invalid {
		p.set(fn).Name = name
	}
	if _, ok := p.expect(token.LPAREN, "'('"); ok {
		p.parseParamList(fn)
	}
	if _, ok := p.expect(token.RPAREN, "')'"); !ok {
		p.synchronize()
	}
	retType := ast.Invalid
	if p.match(token.ARROW) {
		retType = p.parseType()
	}
	if fn != ast.Invalid {
		p.set(fn).RetType = retType
	}
	body := p.parseBlock()
	if fn != ast.Invalid {
		p.appendChild(fn, body)
		p.set(fn).Span = start.Merge(p.prev.Span)
	}
	return fn
}

func (p *Parser) parseIdentName() string {
	if p.check(token.IDENT) {
		name := p.cur.Lexeme
		p.advance()
		return name
	}
	p.errorf(diag.ExpectedIdent, p.cur.Span, "expected identifier, got %s", p.cur.Kind)
	return ""
}

// parseParamList parses `[mut] NAME : type ("," [mut] NAME : type)*` and
// attaches each Param node to fn.Params.
func (p *Parser) parseParamList(fn ast.NodeID) {
	if p.check(token.RPAREN) {
		return
	}
	count := 0
	for {
		if count >= MaxParamsPerFn {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d parameters", MaxParamsPerFn)
			break
		}
		start := p.cur.Span
		mut := p.match(token.MUT)
		name := p.parseIdentName()
		if _, ok := p.expect(token.COLON, "':'"); !ok {
			break
		}
		ty := p.parseType()
		param := p.node(ast.Param, start)
		if param != ast.Invalid {
			n := p.set(param)
			n.Name, n.Mut, n.FieldTy = name, mut, ty
			n.Span = start.Merge(p.prev.Span)
			if fn != ast.Invalid {
				p.set(fn).Params = append(p.set(fn).Params, param)
			}
		}
		count++
		if !p.match(token.COMMA) {
			break
		}
	}
}

// parseType parses `NAME [? | []]`.
func (p *Parser) parseType() ast.NodeID {
	start := p.cur.Span
	var name string
	switch p.cur.Kind {
	case token.UNIT, token.BOOL, token.I32, token.I64, token.F32, token.F64, token.STRINGTY, token.CHARTY:
		name = p.cur.Lexeme
		p.advance()
	default:
		name = p.parseIdentName()
	}
	ty := p.node(ast.TypeRef, start)
	if ty != ast.Invalid {
		p.set(ty).Name = name
	}
	if p.match(token.QUESTION) {
		if ty != ast.Invalid {
			p.set(ty).Optional = true
		}
	} else if p.match(token.LBRACKET) {
		p.expect(token.RBRACKET, "']'")
		if ty != ast.Invalid {
			p.set(ty).Array = true
		}
	}
	if ty != ast.Invalid {
		p.set(ty).Span = start.Merge(p.prev.Span)
	}
	return ty
}

// parseActor parses `actor NAME { (let | fn | receive)* }`.
func (p *Parser) parseActor() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'actor'
	name := p.parseIdentName()
	actor := p.node(ast.ActorDecl, start)
	if actor != ast.Invalid {
		p.set(actor).Name = name
	}
	if _, ok := p.expect(token.LBRACE, "'{'"); !ok {
		return actor
	}
	count := 0
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if count >= MaxFieldsPerAggregate {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d actor members", MaxFieldsPerAggregate)
			break
		}
		var member ast.NodeID
		switch p.cur.Kind {
		case token.LET:
			member = p.parseFieldLet()
		case token.FN:
			member = p.parseFn()
		case token.RECEIVE:
			member = p.parseReceiveStmt()
		default:
			p.errorf(diag.UnexpectedToken, p.cur.Span, "expected let, fn or receive inside actor body, got %s", p.cur.Kind)
			p.synchronize()
			continue
		}
		p.appendChild(actor, member)
		count++
		if p.panicMode {
			p.synchronize()
		}
	}
	p.expect(token.RBRACE, "'}'")
	if actor != ast.Invalid {
		p.set(actor).Span = start.Merge(p.prev.Span)
	}
	return actor
}

// parseFieldLet parses an actor-body `let NAME : type;` field declaration.
func (p *Parser) parseFieldLet() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'let'
	name := p.parseIdentName()
	field := p.node(ast.Field, start)
	if _, ok := p.expect(token.COLON, "':'"); ok {
		ty := p.parseType()
		if field != ast.Invalid {
			p.set(field).FieldTy = ty
		}
	}
	p.expect(token.SEMI, "';'")
	if field != ast.Invalid {
		n := p.set(field)
		n.Name = name
		n.Span = start.Merge(p.prev.Span)
	}
	return field
}

// parseStruct parses `struct NAME { field ("," field)* }`.
func (p *Parser) parseStruct() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'struct'
	name := p.parseIdentName()
	st := p.node(ast.StructDecl, start)
	if st != ast.Invalid {
		p.set(st).Name = name
	}
	if _, ok := p.expect(token.LBRACE, "'{'"); !ok {
		return st
	}
	count := 0
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if count >= MaxFieldsPerAggregate {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d fields", MaxFieldsPerAggregate)
			break
		}
		fstart := p.cur.Span
		fname := p.parseIdentName()
		p.expect(token.COLON, "':'")
		fty := p.parseType()
		field := p.node(ast.Field, fstart)
		if field != ast.Invalid {
			n := p.set(field)
			n.Name, n.FieldTy = fname, fty
			n.Span = fstart.Merge(p.prev.Span)
		}
		p.appendChild(st, field)
		count++
		if !p.match(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACE, "'}'")
	if st != ast.Invalid {
		p.set(st).Span = start.Merge(p.prev.Span)
	}
	return st
}

// --------------------------
// ----- statement rules -----
// --------------------------

func (p *Parser) parseBlock() ast.NodeID {
	start := p.cur.Span
	if _, ok := p.expect(token.LBRACE, "'{'"); !ok {
		return ast.Invalid
	}
	block := p.node(ast.Block, start)
	count := 0
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if count >= MaxStatementsPerBlock {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d statements per block", MaxStatementsPerBlock)
			p.synchronize()
			continue
		}
		stmt := p.parseStatement()
		if stmt != ast.Invalid {
			p.appendChild(block, stmt)
			count++
		}
		if p.panicMode {
			p.synchronize()
		}
	}
	p.expect(token.RBRACE, "'}'")
	if block != ast.Invalid {
		p.set(block).Span = start.Merge(p.prev.Span)
	}
	return block
}

func (p *Parser) parseStatement() ast.NodeID {
	switch p.cur.Kind {
	case token.LET:
		return p.parseLet()
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.LOOP:
		return p.parseLoop()
	case token.BREAK:
		return p.parseSimpleKeywordStmt(ast.BreakStmt)
	case token.CONTINUE:
		return p.parseSimpleKeywordStmt(ast.ContinueStmt)
	case token.RECEIVE:
		return p.parseReceiveStmt()
	default:
		// `spawn Actor(args)` is parsed as a primary expression (see
		// parsePrimary), so a spawn used as a bare statement — the common
		// case, `spawn Worker();` — and one whose result is bound by `let`
		// both flow through the same expression-statement path.
		return p.parseExprStmt()
	}
}

func (p *Parser) parseSimpleKeywordStmt(k ast.Kind) ast.NodeID {
	start := p.cur.Span
	p.advance()
	p.expect(token.SEMI, "';'")
	return p.node(k, start.Merge(p.prev.Span))
}

func (p *Parser) parseLet() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'let'
	mut := p.match(token.MUT)
	name := p.parseIdentName()
	var ty ast.NodeID = ast.Invalid
	if p.match(token.COLON) {
		ty = p.parseType()
	}
	stmt := p.node(ast.LetStmt, start)
	if stmt != ast.Invalid {
		n := p.set(stmt)
		n.Name, n.Mut, n.FieldTy = name, mut, ty
	}
	if p.match(token.ASSIGN) {
		init := p.parseExpr(precAssignment)
		p.appendChild(stmt, init)
	}
	p.expect(token.SEMI, "';'")
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseReturn() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'return'
	stmt := p.node(ast.ReturnStmt, start)
	if !p.check(token.SEMI) {
		e := p.parseExpr(precAssignment)
		p.appendChild(stmt, e)
	}
	p.expect(token.SEMI, "';'")
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseIf() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'if'
	cond := p.parseExpr(precAssignment)
	thenBlock := p.parseBlock()
	stmt := p.node(ast.IfStmt, start)
	p.appendChild(stmt, cond)
	p.appendChild(stmt, thenBlock)
	if p.match(token.ELSE) {
		var elseNode ast.NodeID
		if p.check(token.IF) {
			elseNode = p.parseIf()
		} else {
			elseNode = p.parseBlock()
		}
		p.appendChild(stmt, elseNode)
	}
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseWhile() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'while'
	cond := p.parseExpr(precAssignment)
	body := p.parseBlock()
	stmt := p.node(ast.WhileStmt, start)
	p.appendChild(stmt, cond)
	p.appendChild(stmt, body)
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseFor() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'for'
	name := p.parseIdentName()
	p.expect(token.IN, "'in'")
	iterable := p.parseExpr(precAssignment)
	body := p.parseBlock()
	stmt := p.node(ast.ForStmt, start)
	if stmt != ast.Invalid {
		p.set(stmt).Name = name
	}
	p.appendChild(stmt, iterable)
	p.appendChild(stmt, body)
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseLoop() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'loop'
	body := p.parseBlock()
	stmt := p.node(ast.LoopStmt, start)
	p.appendChild(stmt, body)
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

// parseReceiveStmt parses `receive { arm* }` where arm is
// `pattern => block` and pattern is an identifier (bind) or integer
// literal (tag match).
func (p *Parser) parseReceiveStmt() ast.NodeID {
	start := p.cur.Span
	p.advance() // 'receive'
	stmt := p.node(ast.ReceiveStmt, start)
	if _, ok := p.expect(token.LBRACE, "'{'"); !ok {
		return stmt
	}
	count := 0
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if count >= MaxReceiveArms {
			p.errorf(diag.CapExceeded, p.cur.Span, "exceeded maximum of %d receive arms", MaxReceiveArms)
			break
		}
		arm := p.parseReceiveArm()
		p.appendChild(stmt, arm)
		count++
		if p.panicMode {
			p.synchronize()
		}
	}
	p.expect(token.RBRACE, "'}'")
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}

func (p *Parser) parseReceiveArm() ast.NodeID {
	start := p.cur.Span
	arm := p.node(ast.ReceiveArm, start)
	switch p.cur.Kind {
	case token.INT:
		v := parseIntLiteral(p.cur.Lexeme)
		if arm != ast.Invalid {
			p.set(arm).IntVal = v
		}
		p.advance()
	case token.IDENT:
		name := p.cur.Lexeme
		if arm != ast.Invalid {
			p.set(arm).Name = name
		}
		p.advance()
	default:
		p.errorf(diag.UnexpectedToken, p.cur.Span, "expected identifier or integer receive pattern, got %s", p.cur.Kind)
	}
	p.expect(token.FATARROW, "'=>'")
	body := p.parseBlock()
	p.appendChild(arm, body)
	if arm != ast.Invalid {
		p.set(arm).Span = start.Merge(p.prev.Span)
	}
	return arm
}

func (p *Parser) parseExprStmt() ast.NodeID {
	start := p.cur.Span
	e := p.parseExpr(precAssignment)
	p.expect(token.SEMI, "';'")
	stmt := p.node(ast.ExprStmt, start)
	p.appendChild(stmt, e)
	if stmt != ast.Invalid {
		p.set(stmt).Span = start.Merge(p.prev.Span)
	}
	return stmt
}
