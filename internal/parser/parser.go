// Package parser is a minimal recursive-descent producer of internal/ast
// nodes. spec.md §1 treats source parsing as an external collaborator
// ("an AST producer is assumed"); this package stands in for that
// collaborator so the compiler and VM can be exercised end-to-end.
// It covers the subset of JavaScript statements and expressions the
// compiler (internal/compiler) accepts, and reports constructs the
// compiler is specified to reject (destructuring, spread, computed
// object keys) as ordinary AST nodes that the compiler, not the parser,
// turns into Unsupported errors.
package parser

import (
	"fmt"

	"github.com/otterjs/otter/internal/ast"
)

// Error is a parse failure with source position, matching the Parse
// variant of compiler.CompileError.
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Message) }

type parser struct {
	lex  *lexer
	tok  token
	prev token
}

// Parse compiles src into a Program AST.
func Parse(src string) (*ast.Program, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	for p.tok.kind != tEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
	}
	return prog, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return &Error{Line: p.lex.line, Message: err.Error()}
	}
	p.prev = p.tok
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return &Error{Line: p.tok.line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) isPunct(s string) bool { return p.tok.kind == tPunct && p.tok.text == s }
func (p *parser) isKeyword(s string) bool {
	return p.tok.kind == tKeyword && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errf("expected %q, got %q", s, p.tok.text)
	}
	return p.advance()
}

// consumeSemi implements a minimal automatic-semicolon-insertion: an
// explicit ';' is consumed; otherwise a newline, '}', or EOF is accepted.
func (p *parser) consumeSemi() error {
	if p.isPunct(";") {
		return p.advance()
	}
	if p.isPunct("}") || p.tok.kind == tEOF || p.tok.newlineBefore {
		return nil
	}
	return p.errf("expected ';', got %q", p.tok.text)
}

func (p *parser) parseStatement() (ast.Node, error) {
	line := p.tok.line
	switch {
	case p.isPunct("{"):
		return p.parseBlock()
	case p.isKeyword("let") || p.isKeyword("const") || p.isKeyword("var"):
		return p.parseVarDeclStatement()
	case p.isKeyword("function"):
		return p.parseFuncDecl(false)
	case p.isKeyword("async"):
		return p.parseAsyncDecl()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("while"):
		return p.parseWhile()
	case p.isKeyword("for"):
		return p.parseFor()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("break"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consumeSemi(); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{}, nil
	case p.isKeyword("continue"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.consumeSemi(); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{}, nil
	case p.isKeyword("throw"):
		return p.parseThrow()
	case p.isKeyword("try"):
		return p.parseTry()
	case p.isKeyword("debugger"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		_ = p.consumeSemi()
		return &ast.DebuggerStmt{}, nil
	case p.isPunct(";"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BlockStmt{}, nil
	default:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.consumeSemi(); err != nil {
			return nil, err
		}
		n := &ast.ExprStmt{Expr: expr}
		n.L = line
		return n, nil
	}
}

func (p *parser) parseBlock() (*ast.BlockStmt, error) {
	line := p.tok.line
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	b := &ast.BlockStmt{}
	b.L = line
	for !p.isPunct("}") {
		if p.tok.kind == tEOF {
			return nil, p.errf("unexpected EOF, expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Body = append(b.Body, stmt)
	}
	return b, p.advance()
}

func (p *parser) parseVarDeclStatement() (ast.Node, error) {
	d, err := p.parseVarDecl()
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return d, nil
}

func (p *parser) parseVarDecl() (*ast.VarDecl, error) {
	line := p.tok.line
	var kind ast.VarKind
	switch p.tok.text {
	case "let":
		kind = ast.VarLet
	case "const":
		kind = ast.VarConst
	case "var":
		kind = ast.VarVar
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.isPunct("{") || p.isPunct("[") {
		return nil, p.errf("Unsupported: destructuring declaration")
	}
	if p.tok.kind != tIdent {
		return nil, p.errf("expected identifier, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	d := &ast.VarDecl{Kind: kind, Name: name}
	d.L = line
	if p.isPunct("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		d.Init = init
	}
	return d, nil
}

func (p *parser) parseFuncDecl(isAsync bool) (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil { // consume 'function'
		return nil, err
	}
	if p.tok.kind != tIdent {
		return nil, p.errf("expected function name, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	d := &ast.FuncDecl{Name: name, Params: params, Body: body, IsAsync: isAsync}
	d.L = line
	return d, nil
}

func (p *parser) parseAsyncDecl() (ast.Node, error) {
	if err := p.advance(); err != nil { // consume 'async'
		return nil, err
	}
	if p.isKeyword("function") {
		return p.parseFuncDecl(true)
	}
	return nil, p.errf("expected 'function' after 'async'")
}

func (p *parser) parseParams() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var params []string
	for !p.isPunct(")") {
		if p.isPunct("...") {
			return nil, p.errf("Unsupported: rest parameter")
		}
		if p.isPunct("{") || p.isPunct("[") {
			return nil, p.errf("Unsupported: destructuring parameter")
		}
		if p.tok.kind != tIdent {
			return nil, p.errf("expected parameter name, got %q", p.tok.text)
		}
		params = append(params, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isPunct("=") {
			return nil, p.errf("Unsupported: default parameter value")
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return params, p.advance()
}

func (p *parser) parseIf() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	cons, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.IfStmt{Test: test, Cons: cons}
	n.L = line
	if p.isKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		alt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		n.Alt = alt
	}
	return n, nil
}

func (p *parser) parseWhile() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	test, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.WhileStmt{Test: test, Body: body}
	n.L = line
	return n, nil
}

func (p *parser) parseFor() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	if p.isKeyword("let") || p.isKeyword("const") || p.isKeyword("var") {
		kindTok := p.tok.text
		var kind ast.VarKind
		switch kindTok {
		case "let":
			kind = ast.VarLet
		case "const":
			kind = ast.VarConst
		case "var":
			kind = ast.VarVar
		}
		// Peek ahead for for-in/for-of: `let name in/of expr`
		save := *p.lex
		savedTok := p.tok
		if err := p.advance(); err != nil { // consume kind keyword
			return nil, err
		}
		if p.tok.kind == tIdent {
			name := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.isKeyword("in") || p.isKeyword("of") {
				isOf := p.tok.text == "of"
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				if err := p.expectPunct(")"); err != nil {
					return nil, err
				}
				body, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				n := &ast.ForInStmt{DeclKind: kind, Name: name, IsOf: isOf, Right: right, Body: body}
				n.L = line
				return n, nil
			}
		}
		// Not for-in/of: rewind to before the kind keyword and parse a
		// normal var-decl list below.
		*p.lex = save
		p.tok = savedTok
	}

	var init ast.Node
	if !p.isPunct(";") {
		if p.isKeyword("let") || p.isKeyword("const") || p.isKeyword("var") {
			d, err := p.parseVarDecl()
			if err != nil {
				return nil, err
			}
			init = d
		} else {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			init = &ast.ExprStmt{Expr: e}
		}
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var test ast.Node
	if !p.isPunct(";") {
		t, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		test = t
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var update ast.Node
	if !p.isPunct(")") {
		u, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		update = u
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	n := &ast.ForStmt{Init: init, Test: test, Update: update, Body: body}
	n.L = line
	return n, nil
}

func (p *parser) parseReturn() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	n := &ast.ReturnStmt{}
	n.L = line
	if !p.isPunct(";") && !p.isPunct("}") && p.tok.kind != tEOF && !p.tok.newlineBefore {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.Arg = e
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseThrow() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.consumeSemi(); err != nil {
		return nil, err
	}
	n := &ast.ThrowStmt{Arg: e}
	n.L = line
	return n, nil
}

func (p *parser) parseTry() (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := &ast.TryStmt{Block: block}
	n.L = line
	if p.isKeyword("catch") {
		n.HasCatch = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isPunct("(") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tIdent {
				return nil, p.errf("expected catch parameter name")
			}
			n.CatchParam = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		cb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.CatchBlock = cb
	}
	if p.isKeyword("finally") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		fb, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.FinallyBlock = fb
	}
	if !n.HasCatch && n.FinallyBlock == nil {
		return nil, p.errf("missing catch or finally after try block")
	}
	return n, nil
}

// ---- Expressions (precedence climbing) ----

func (p *parser) parseExpression() (ast.Node, error) {
	first, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if !p.isPunct(",") {
		return first, nil
	}
	seq := &ast.SequenceExpr{Exprs: []ast.Node{first}}
	for p.isPunct(",") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		seq.Exprs = append(seq.Exprs, e)
	}
	return seq, nil
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"**=": true, "&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
	"&&=": true, "||=": true, "??=": true,
}

func (p *parser) parseAssign() (ast.Node, error) {
	line := p.tok.line
	left, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tPunct && assignOps[p.tok.text] {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch left.(type) {
		case *ast.Ident, *ast.MemberExpr:
		default:
			return nil, p.errf("InvalidAssignmentTarget")
		}
		right, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := &ast.AssignExpr{Op: op, Target: left, Value: right}
		n.L = line
		return n, nil
	}
	return left, nil
}

func (p *parser) parseConditional() (ast.Node, error) {
	line := p.tok.line
	test, err := p.parseNullish()
	if err != nil {
		return nil, err
	}
	if p.isPunct("?") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cons, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		alt, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n := &ast.ConditionalExpr{Test: test, Cons: cons, Alt: alt}
		n.L = line
		return n, nil
	}
	return test, nil
}

func (p *parser) parseNullish() (ast.Node, error) {
	left, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	for p.isPunct("??") {
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		n := &ast.LogicalExpr{Op: ast.LogNullish, Left: left, Right: right}
		n.L = line
		left = n
	}
	return left, nil
}

func (p *parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		n := &ast.LogicalExpr{Op: ast.LogOr, Left: left, Right: right}
		n.L = line
		left = n
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Node, error) {
	left, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		n := &ast.LogicalExpr{Op: ast.LogAnd, Left: left, Right: right}
		n.L = line
		left = n
	}
	return left, nil
}

// binary operator precedence table (higher binds tighter).
var binPrec = map[string]int{
	"|": 1, "^": 2, "&": 3,
	"==": 4, "!=": 4, "===": 4, "!==": 4,
	"<": 5, "<=": 5, ">": 5, ">=": 5,
	"<<": 6, ">>": 6, ">>>": 6,
	"+": 7, "-": 7,
	"*": 8, "/": 8, "%": 8,
	"**": 9,
}

func (p *parser) parseBinary(minPrec int) (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tPunct {
		prec, ok := binPrec[p.tok.text]
		if !ok || prec < minPrec {
			break
		}
		op := p.tok.text
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		nextMin := prec + 1
		if op == "**" {
			nextMin = prec // right-associative
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		n := &ast.BinaryExpr{Op: ast.BinOp(op), Left: left, Right: right}
		n.L = line
		left = n
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Node, error) {
	line := p.tok.line
	if p.isPunct("+") || p.isPunct("-") || p.isPunct("!") || p.isPunct("~") ||
		p.isKeyword("typeof") || p.isKeyword("void") {
		opText := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.UnaryExpr{Op: ast.UnaryOp(opText), Arg: arg}
		n.L = line
		return n, nil
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.UpdateExpr{Op: op, Prefix: true, Arg: arg}
		n.L = line
		return n, nil
	}
	if p.isKeyword("await") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		n := &ast.AwaitExpr{Arg: arg}
		n.L = line
		return n, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parseCallMember()
	if err != nil {
		return nil, err
	}
	if (p.isPunct("++") || p.isPunct("--")) && !p.tok.newlineBefore {
		op := p.tok.text
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.UpdateExpr{Op: op, Prefix: false, Arg: expr}
		n.L = line
		return n, nil
	}
	return expr, nil
}

func (p *parser) parseCallMember() (ast.Node, error) {
	var expr ast.Node
	var err error
	if p.isKeyword("new") {
		line := p.tok.line
		if err := p.advance(); err != nil {
			return nil, err
		}
		callee, err := p.parseCallMemberNoCall()
		if err != nil {
			return nil, err
		}
		var args []ast.Node
		if p.isPunct("(") {
			args, err = p.parseArgs()
			if err != nil {
				return nil, err
			}
		}
		expr = &ast.NewExpr{Callee: callee, Args: args}
		expr.(*ast.NewExpr).L = line
	} else {
		expr, err = p.parsePrimary()
		if err != nil {
			return nil, err
		}
	}
	for {
		switch {
		case p.isPunct("."):
			line := p.tok.line
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tIdent && p.tok.kind != tKeyword {
				return nil, p.errf("expected property name after '.'")
			}
			name := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			n := &ast.MemberExpr{Object: expr, Property: name}
			n.L = line
			expr = n
		case p.isPunct("["):
			line := p.tok.line
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			n := &ast.MemberExpr{Object: expr, Computed: true, ComputedProp: idx}
			n.L = line
			expr = n
		case p.isPunct("("):
			line := p.tok.line
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			n := &ast.CallExpr{Callee: expr, Args: args}
			n.L = line
			expr = n
		default:
			return expr, nil
		}
	}
}

// parseCallMemberNoCall parses a member-access chain without consuming a
// trailing call, used for `new Foo.Bar(...)` callee resolution.
func (p *parser) parseCallMemberNoCall() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		if p.isPunct(".") {
			line := p.tok.line
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.kind != tIdent && p.tok.kind != tKeyword {
				return nil, p.errf("expected property name after '.'")
			}
			name := p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			n := &ast.MemberExpr{Object: expr, Property: name}
			n.L = line
			expr = n
			continue
		}
		if p.isPunct("[") {
			line := p.tok.line
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			n := &ast.MemberExpr{Object: expr, Computed: true, ComputedProp: idx}
			n.L = line
			expr = n
			continue
		}
		break
	}
	return expr, nil
}

func (p *parser) parseArgs() ([]ast.Node, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.isPunct(")") {
		if p.isPunct("...") {
			line := p.tok.line
			if err := p.advance(); err != nil {
				return nil, err
			}
			arg, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			sp := &ast.SpreadElement{Arg: arg}
			sp.L = line
			args = append(args, sp)
		} else {
			a, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return args, p.advance()
}

func (p *parser) parsePrimary() (ast.Node, error) {
	line := p.tok.line
	switch {
	case p.tok.kind == tNumber:
		v := p.tok.num
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.NumberLit{Value: v}
		n.L = line
		return n, nil
	case p.tok.kind == tString:
		v := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.StringLit{Value: v}
		n.L = line
		return n, nil
	case p.isKeyword("true") || p.isKeyword("false"):
		v := p.tok.text == "true"
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.BoolLit{Value: v}
		n.L = line
		return n, nil
	case p.isKeyword("null"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.NullLit{}
		n.L = line
		return n, nil
	case p.isKeyword("undefined"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		n := &ast.UndefinedLit{}
		n.L = line
		return n, nil
	case p.tok.kind == tIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isPunct("=>") {
			return p.parseArrowFromSingleParam(name, line)
		}
		n := &ast.Ident{Name: name}
		n.L = line
		return n, nil
	case p.isKeyword("function"):
		return p.parseFuncExpr(false)
	case p.isKeyword("async"):
		save := *p.lex
		savedTok := p.tok
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.isKeyword("function") {
			return p.parseFuncExpr(true)
		}
		*p.lex = save
		p.tok = savedTok
		return nil, p.errf("Unsupported: async arrow function")
	case p.isPunct("("):
		return p.parseParenOrArrow()
	case p.isPunct("["):
		return p.parseArrayLit()
	case p.isPunct("{"):
		return p.parseObjectLit()
	case p.isPunct("..."):
		return nil, p.errf("Unsupported: spread in this position")
	}
	return nil, p.errf("unexpected token %q", p.tok.text)
}

func (p *parser) parseArrowFromSingleParam(name string, line int) (ast.Node, error) {
	if err := p.advance(); err != nil { // consume '=>'
		return nil, err
	}
	body, err := p.parseArrowBody()
	if err != nil {
		return nil, err
	}
	n := &ast.FuncExpr{Params: []string{name}, Body: body, IsArrow: true}
	n.L = line
	return n, nil
}

func (p *parser) parseArrowBody() (*ast.BlockStmt, error) {
	if p.isPunct("{") {
		return p.parseBlock()
	}
	line := p.tok.line
	e, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	ret := &ast.ReturnStmt{Arg: e}
	ret.L = line
	b := &ast.BlockStmt{Body: []ast.Node{ret}}
	b.L = line
	return b, nil
}

// parseParenOrArrow disambiguates `(expr)` from `(params) => body`.
func (p *parser) parseParenOrArrow() (ast.Node, error) {
	line := p.tok.line
	save := *p.lex
	savedTok := p.tok
	params, ok := p.tryParseArrowParams()
	if ok && p.isPunct("=>") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		body, err := p.parseArrowBody()
		if err != nil {
			return nil, err
		}
		n := &ast.FuncExpr{Params: params, Body: body, IsArrow: true}
		n.L = line
		return n, nil
	}
	*p.lex = save
	p.tok = savedTok

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

// tryParseArrowParams speculatively parses `(a, b, c)`; returns ok=false
// on any non-simple-identifier-list shape so the caller can backtrack.
func (p *parser) tryParseArrowParams() ([]string, bool) {
	if !p.isPunct("(") {
		return nil, false
	}
	if err := p.advance(); err != nil {
		return nil, false
	}
	var params []string
	for !p.isPunct(")") {
		if p.tok.kind != tIdent {
			return nil, false
		}
		params = append(params, p.tok.text)
		if err := p.advance(); err != nil {
			return nil, false
		}
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, false
			}
			continue
		}
		if !p.isPunct(")") {
			return nil, false
		}
	}
	if err := p.advance(); err != nil { // consume ')'
		return nil, false
	}
	return params, true
}

func (p *parser) parseFuncExpr(isAsync bool) (ast.Node, error) {
	line := p.tok.line
	if err := p.advance(); err != nil { // consume 'function'
		return nil, err
	}
	name := ""
	if p.tok.kind == tIdent {
		name = p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := &ast.FuncExpr{Name: name, Params: params, Body: body, IsAsync: isAsync}
	n.L = line
	return n, nil
}

func (p *parser) parseArrayLit() (ast.Node, error) {
	line := p.tok.line
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	n := &ast.ArrayLit{}
	n.L = line
	for !p.isPunct("]") {
		if p.isPunct(",") {
			n.Elements = append(n.Elements, nil)
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.isPunct("...") {
			return nil, p.errf("Unsupported: spread element in array literal")
		}
		e, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		n.Elements = append(n.Elements, e)
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return n, p.advance()
}

func (p *parser) parseObjectLit() (ast.Node, error) {
	line := p.tok.line
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	n := &ast.ObjectLit{}
	n.L = line
	for !p.isPunct("}") {
		if p.isPunct("...") {
			return nil, p.errf("Unsupported: spread property in object literal")
		}
		if p.isPunct("[") {
			return nil, p.errf("Unsupported: computed property key")
		}
		var key string
		switch p.tok.kind {
		case tIdent, tKeyword:
			key = p.tok.text
		case tString:
			key = p.tok.text
		case tNumber:
			key = p.tok.text
		default:
			return nil, p.errf("expected property key, got %q", p.tok.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		var value ast.Node
		if p.isPunct(":") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			v, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			value = v
		} else if p.isPunct("(") {
			// shorthand method: key(...) { ... }
			params, err := p.parseParams()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			fe := &ast.FuncExpr{Params: params, Body: body}
			fe.L = line
			value = fe
		} else {
			// shorthand { x } == { x: x }
			id := &ast.Ident{Name: key}
			id.L = line
			value = id
		}
		n.Props = append(n.Props, ast.Property{Key: key, Value: value})
		if p.isPunct(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return n, p.advance()
}
